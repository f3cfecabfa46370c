package warehouse

import (
	"strings"
	"testing"
)

func TestMintFormat(t *testing.T) {
	tests := []struct {
		kind   Kind
		prefix string
	}{
		{KindTime, "DT"},
		{KindSource, "NS"},
		{KindAuthor, "AU"},
		{KindContent, "CT"},
		{KindFact, "AR"},
	}

	for _, tt := range tests {
		key := Mint(tt.kind)
		if !strings.HasPrefix(key, tt.prefix) {
			t.Errorf("Mint(%s) = %q, want prefix %q", tt.kind, key, tt.prefix)
		}
		if len(key) != 12 {
			t.Errorf("Mint(%s) = %q, want length 12, got %d", tt.kind, key, len(key))
		}
		suffix := key[2:]
		if strings.Trim(suffix, "0123456789abcdef") != "" {
			t.Errorf("Mint(%s) suffix %q contains non-hex characters", tt.kind, suffix)
		}
	}
}

func TestMintDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		key := Mint(KindFact)
		if seen[key] {
			t.Fatalf("duplicate key %q after %d mints", key, i)
		}
		seen[key] = true
	}
}
