package warehouse

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Kind selects the two-character surrogate key prefix.
type Kind string

const (
	KindTime    Kind = "DT"
	KindSource  Kind = "NS"
	KindAuthor  Kind = "AU"
	KindContent Kind = "CT"
	KindFact    Kind = "AR"
)

// keySuffixLen is the number of hex characters after the prefix; together
// with the prefix every key is exactly 12 characters, matching the
// varchar(12) key columns.
const keySuffixLen = 10

// KeyFunc mints surrogate keys. Production code uses Mint; tests substitute
// deterministic implementations.
type KeyFunc func(Kind) string

// Mint returns a fresh surrogate key: the kind's prefix followed by 10
// lowercase hex characters. Collisions are statistically negligible for
// realistic batch sizes and are not checked here; the primary key constraint
// at the store is the backstop.
func Mint(kind Kind) string {
	buf := make([]byte, keySuffixLen/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	return string(kind) + hex.EncodeToString(buf)
}
