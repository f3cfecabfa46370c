package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// fakeStore implements Lookup over in-memory maps, standing in for the
// persisted warehouse state of prior runs.
type fakeStore struct {
	times   map[string]string
	sources map[string]string
	authors map[string]string
	lookups int
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		times:   map[string]string{},
		sources: map[string]string{},
		authors: map[string]string{},
	}
}

func (f *fakeStore) FindTimeKey(_ context.Context, publishedAt time.Time) (string, bool, error) {
	return f.find(f.times, publishedAt.UTC().Format(time.RFC3339Nano))
}

func (f *fakeStore) FindSourceKey(_ context.Context, domainID string) (string, bool, error) {
	return f.find(f.sources, domainID)
}

func (f *fakeStore) FindAuthorKey(_ context.Context, name string) (string, bool, error) {
	return f.find(f.authors, name)
}

func (f *fakeStore) find(table map[string]string, naturalKey string) (string, bool, error) {
	f.lookups++
	if f.failErr != nil {
		return "", false, f.failErr
	}
	key, ok := table[naturalKey]
	return key, ok, nil
}

// persist applies a batch's dimension rows as if the load had committed.
func (f *fakeStore) persist(batch *StarBatch) {
	for _, r := range batch.Times {
		f.times[r.PublishedAt.UTC().Format(time.RFC3339Nano)] = r.ID
	}
	for _, r := range batch.Sources {
		f.sources[r.DomainID] = r.ID
	}
	for _, r := range batch.Authors {
		f.authors[r.Name] = r.ID
	}
}

// fakeCache implements KeyCache over a map and counts lookups.
type fakeCache struct {
	entries map[string]string
	lookups int
}

func (f *fakeCache) LookupKey(_ context.Context, cacheKey string) (string, bool) {
	f.lookups++
	key, ok := f.entries[cacheKey]
	return key, ok
}

// sequentialMint returns a deterministic KeyFunc: DT000000000, DT000000001...
func sequentialMint() KeyFunc {
	counts := map[Kind]int{}
	return func(kind Kind) string {
		n := counts[kind]
		counts[kind]++
		return fmt.Sprintf("%s%010d", kind, n)
	}
}

var errStoreDown = errors.New("store unreachable")
