// Package warehouse implements the star-schema core: surrogate key minting,
// dimension resolution against the persisted warehouse, batch decomposition
// into dimension and fact tables, and the incremental merge filter that keeps
// already-persisted dimension rows from being inserted twice.
package warehouse

import "time"

// Tag records whether a dimension row was minted in this batch or matched a
// row already persisted by a prior run. It is row metadata, never a column.
type Tag string

const (
	TagNew      Tag = "new"
	TagExisting Tag = "existing"
)

// Dimension names a dimension table, used for metrics labels and cache keys.
type Dimension string

const (
	DimTime    Dimension = "datetime"
	DimSource  Dimension = "news_source"
	DimAuthor  Dimension = "author"
	DimContent Dimension = "content"
)

// TimeRow is one row of dim_datetime. Natural key: the exact UTC instant.
type TimeRow struct {
	ID          string
	PublishedAt time.Time
	Tag         Tag
}

// SourceRow is one row of dim_news_source. Natural key: DomainID.
type SourceRow struct {
	ID         string
	DomainID   string
	DomainName string
	Tag        Tag
}

// AuthorRow is one row of dim_author. Natural key: the exact author string,
// with "" standing for the missing-author sentinel (persisted as NULL).
type AuthorRow struct {
	ID   string
	Name string
	Tag  Tag
}

// ContentRow is one row of dim_content. Content is never deduplicated against
// history, so its Tag is always TagNew.
type ContentRow struct {
	ID    string
	Title string
	URL   string
	Tag   Tag
}

// FactRow is one row of fact_articles: its own key plus the four dimension
// foreign keys. Facts are never deduplicated.
type FactRow struct {
	ID         string
	DatetimeID string
	SourceID   string
	AuthorID   string
	ContentID  string
}

// StarBatch holds the five tables produced from one normalized input batch.
type StarBatch struct {
	Times    []TimeRow
	Sources  []SourceRow
	Authors  []AuthorRow
	Contents []ContentRow
	Facts    []FactRow
}

// DimensionCounts tallies rows per dimension for a given tag.
func (b *StarBatch) DimensionCounts(tag Tag) map[Dimension]int {
	counts := make(map[Dimension]int, 4)
	for _, r := range b.Times {
		if r.Tag == tag {
			counts[DimTime]++
		}
	}
	for _, r := range b.Sources {
		if r.Tag == tag {
			counts[DimSource]++
		}
	}
	for _, r := range b.Authors {
		if r.Tag == tag {
			counts[DimAuthor]++
		}
	}
	for _, r := range b.Contents {
		if r.Tag == tag {
			counts[DimContent]++
		}
	}
	return counts
}
