package warehouse

import (
	"context"
	"fmt"
	"time"
)

// Lookup is the read side of the warehouse store the resolver depends on.
// Each call is one blocking point query on the natural key column.
type Lookup interface {
	FindTimeKey(ctx context.Context, publishedAt time.Time) (key string, found bool, err error)
	FindSourceKey(ctx context.Context, domainID string) (key string, found bool, err error)
	FindAuthorKey(ctx context.Context, name string) (key string, found bool, err error)
}

// KeyCache is an optional read-only shortcut in front of store lookups. It
// must only ever hold keys that are already persisted; the pipeline fills it
// after a load commits, never before.
type KeyCache interface {
	LookupKey(ctx context.Context, cacheKey string) (key string, found bool)
}

// ResolverStats counts resolution work for one batch. The batch transform is
// sequential, so plain ints suffice.
type ResolverStats struct {
	StoreLookups map[Dimension]int
	CacheHits    int
	CacheMisses  int
}

// Resolver decides, per distinct natural-key value, whether the warehouse
// already holds a dimension row for it. It returns the existing surrogate key
// (TagExisting) or mints a fresh one (TagNew). It never writes: persistence
// of NEW rows happens downstream of the merge filter.
type Resolver struct {
	store Lookup
	cache KeyCache // may be nil
	mint  KeyFunc
	Stats ResolverStats
}

// NewResolver creates a Resolver. cache may be nil; mint defaults to Mint.
func NewResolver(store Lookup, cache KeyCache, mint KeyFunc) *Resolver {
	if mint == nil {
		mint = Mint
	}
	return &Resolver{
		store: store,
		cache: cache,
		mint:  mint,
		Stats: ResolverStats{StoreLookups: make(map[Dimension]int)},
	}
}

// ResolveTime resolves a distinct publication instant.
func (r *Resolver) ResolveTime(ctx context.Context, publishedAt time.Time) (string, Tag, error) {
	return r.resolve(ctx, DimTime, CacheKeyTime(publishedAt), KindTime, func() (string, bool, error) {
		return r.store.FindTimeKey(ctx, publishedAt)
	})
}

// ResolveSource resolves a distinct source domain id.
func (r *Resolver) ResolveSource(ctx context.Context, domainID string) (string, Tag, error) {
	return r.resolve(ctx, DimSource, CacheKeySource(domainID), KindSource, func() (string, bool, error) {
		return r.store.FindSourceKey(ctx, domainID)
	})
}

// ResolveAuthor resolves a distinct author string ("" is the missing-author
// sentinel and resolves like any other single value).
func (r *Resolver) ResolveAuthor(ctx context.Context, name string) (string, Tag, error) {
	return r.resolve(ctx, DimAuthor, CacheKeyAuthor(name), KindAuthor, func() (string, bool, error) {
		return r.store.FindAuthorKey(ctx, name)
	})
}

func (r *Resolver) resolve(ctx context.Context, dim Dimension, cacheKey string, kind Kind, find func() (string, bool, error)) (string, Tag, error) {
	if r.cache != nil {
		if key, found := r.cache.LookupKey(ctx, cacheKey); found {
			r.Stats.CacheHits++
			return key, TagExisting, nil
		}
		r.Stats.CacheMisses++
	}

	r.Stats.StoreLookups[dim]++
	key, found, err := find()
	if err != nil {
		return "", "", err
	}
	if found {
		return key, TagExisting, nil
	}
	return r.mint(kind), TagNew, nil
}

// CacheKeyTime returns the cache key for a publication instant.
func CacheKeyTime(publishedAt time.Time) string {
	return "dim:datetime:" + publishedAt.UTC().Format(time.RFC3339Nano)
}

// CacheKeySource returns the cache key for a source domain id.
func CacheKeySource(domainID string) string {
	return "dim:news_source:" + domainID
}

// CacheKeyAuthor returns the cache key for an author string.
func CacheKeyAuthor(name string) string {
	return fmt.Sprintf("dim:author:%q", name)
}
