package warehouse

import (
	"context"
	"log/slog"
	"time"

	"github.com/newswire-data/warehouse-pipeline/internal/normalize"
	pipeerrors "github.com/newswire-data/warehouse-pipeline/pkg/errors"
)

// Builder decomposes a normalized batch into the four dimension tables plus
// the fact table. Dimension values are resolved once per distinct value, not
// per input row, which bounds store round-trips; resolved keys are then
// rejoined onto every article.
type Builder struct {
	resolver *Resolver
	mint     KeyFunc
	logger   *slog.Logger
}

// NewBuilder creates a Builder. mint defaults to Mint and is used for the
// never-deduplicated content and fact keys.
func NewBuilder(resolver *Resolver, mint KeyFunc) *Builder {
	if mint == nil {
		mint = Mint
	}
	return &Builder{
		resolver: resolver,
		mint:     mint,
		logger:   slog.Default().With("component", "star-builder"),
	}
}

// Build transforms the batch into a StarBatch. Exactly one fact row is
// produced per input article; dimension rows are produced per distinct
// natural-key value and tagged per resolver result. A store failure aborts
// the whole transform.
func (b *Builder) Build(ctx context.Context, articles []normalize.Article) (*StarBatch, error) {
	batch := &StarBatch{}

	timeKeys, err := b.buildTimes(ctx, articles, batch)
	if err != nil {
		return nil, err
	}
	sourceKeys, err := b.buildSources(ctx, articles, batch)
	if err != nil {
		return nil, err
	}
	authorKeys, err := b.buildAuthors(ctx, articles, batch)
	if err != nil {
		return nil, err
	}
	contentKeys := b.buildContents(articles, batch)

	// Facts are never deduplicated: every input row gets a fresh key, even
	// when all four of its dimension references are EXISTING.
	for _, a := range articles {
		batch.Facts = append(batch.Facts, FactRow{
			ID:         b.mint(KindFact),
			DatetimeID: timeKeys[a.PublishedAt],
			SourceID:   sourceKeys[a.SourceID],
			AuthorID:   authorKeys[a.Author],
			ContentID:  contentKeys[contentKey(a.Title, a.URL)],
		})
	}

	if err := verifyIntegrity(batch); err != nil {
		return nil, err
	}

	b.logger.Info("star batch built",
		"articles", len(articles),
		"new_rows", batch.DimensionCounts(TagNew),
		"existing_rows", batch.DimensionCounts(TagExisting),
	)
	return batch, nil
}

// buildTimes resolves each distinct publication instant. Instants were
// normalized to UTC upstream, so exact equality is the whole match rule.
func (b *Builder) buildTimes(ctx context.Context, articles []normalize.Article, batch *StarBatch) (map[time.Time]string, error) {
	keys := make(map[time.Time]string)
	for _, a := range articles {
		if _, seen := keys[a.PublishedAt]; seen {
			continue
		}
		key, tag, err := b.resolver.ResolveTime(ctx, a.PublishedAt)
		if err != nil {
			return nil, err
		}
		keys[a.PublishedAt] = key
		batch.Times = append(batch.Times, TimeRow{ID: key, PublishedAt: a.PublishedAt, Tag: tag})
	}
	return keys, nil
}

// buildSources resolves each distinct source domain id. The first name seen
// for an id wins; a second spelling of the same id must not mint a second
// key for the same natural-key value.
func (b *Builder) buildSources(ctx context.Context, articles []normalize.Article, batch *StarBatch) (map[string]string, error) {
	keys := make(map[string]string)
	for _, a := range articles {
		if _, seen := keys[a.SourceID]; seen {
			continue
		}
		key, tag, err := b.resolver.ResolveSource(ctx, a.SourceID)
		if err != nil {
			return nil, err
		}
		keys[a.SourceID] = key
		batch.Sources = append(batch.Sources, SourceRow{
			ID:         key,
			DomainID:   a.SourceID,
			DomainName: a.SourceName,
			Tag:        tag,
		})
	}
	return keys, nil
}

// buildAuthors resolves each distinct author string. The empty string is the
// missing-author sentinel: all author-less articles share one dimension row.
func (b *Builder) buildAuthors(ctx context.Context, articles []normalize.Article, batch *StarBatch) (map[string]string, error) {
	keys := make(map[string]string)
	for _, a := range articles {
		if _, seen := keys[a.Author]; seen {
			continue
		}
		key, tag, err := b.resolver.ResolveAuthor(ctx, a.Author)
		if err != nil {
			return nil, err
		}
		keys[a.Author] = key
		batch.Authors = append(batch.Authors, AuthorRow{ID: key, Name: a.Author, Tag: tag})
	}
	return keys, nil
}

// buildContents mints a fresh key per distinct (title, url) pair without
// consulting the store: the content dimension is not deduplicated against
// history, so its rows are always TagNew.
func (b *Builder) buildContents(articles []normalize.Article, batch *StarBatch) map[string]string {
	keys := make(map[string]string)
	for _, a := range articles {
		ck := contentKey(a.Title, a.URL)
		if _, seen := keys[ck]; seen {
			continue
		}
		key := b.mint(KindContent)
		keys[ck] = key
		batch.Contents = append(batch.Contents, ContentRow{ID: key, Title: a.Title, URL: a.URL, Tag: TagNew})
	}
	return keys
}

// contentKey joins the (title, url) natural-key pair with a separator that
// cannot appear in either field.
func contentKey(title, url string) string {
	return title + "\x00" + url
}

// verifyIntegrity checks that every fact foreign key references a dimension
// row present in this batch (EXISTING or NEW). A miss means the rejoin is
// broken; fail fast rather than load an orphaned fact.
func verifyIntegrity(batch *StarBatch) error {
	times := make(map[string]bool, len(batch.Times))
	for _, r := range batch.Times {
		times[r.ID] = true
	}
	sources := make(map[string]bool, len(batch.Sources))
	for _, r := range batch.Sources {
		sources[r.ID] = true
	}
	authors := make(map[string]bool, len(batch.Authors))
	for _, r := range batch.Authors {
		authors[r.ID] = true
	}
	contents := make(map[string]bool, len(batch.Contents))
	for _, r := range batch.Contents {
		contents[r.ID] = true
	}

	for _, f := range batch.Facts {
		switch {
		case !times[f.DatetimeID]:
			return pipeerrors.Newf(pipeerrors.ErrIntegrity, "transform", "fact %s references unknown datetime key %s", f.ID, f.DatetimeID)
		case !sources[f.SourceID]:
			return pipeerrors.Newf(pipeerrors.ErrIntegrity, "transform", "fact %s references unknown source key %s", f.ID, f.SourceID)
		case !authors[f.AuthorID]:
			return pipeerrors.Newf(pipeerrors.ErrIntegrity, "transform", "fact %s references unknown author key %s", f.ID, f.AuthorID)
		case !contents[f.ContentID]:
			return pipeerrors.Newf(pipeerrors.ErrIntegrity, "transform", "fact %s references unknown content key %s", f.ID, f.ContentID)
		}
	}
	return nil
}
