// Package normalize turns raw API articles into clean records for the
// star-schema builder: trimmed strings, the nested source split into id and
// name, publishedAt coerced to a UTC instant, and a single sentinel value for
// missing authors.
package normalize

import (
	"log/slog"
	"strings"
	"time"

	"github.com/newswire-data/warehouse-pipeline/internal/newsapi"
)

// Article is one cleaned record. Author == "" is the missing-author sentinel:
// every author-less article shares it, so it resolves to one dimension row.
type Article struct {
	Title       string
	Author      string
	URL         string
	SourceID    string
	SourceName  string
	PublishedAt time.Time
}

// timestampLayouts are tried in order when parsing publishedAt. NewsAPI emits
// RFC3339, occasionally without a zone designator.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Result carries the cleaned batch plus a count of rows that failed
// normalization. Rejects are reported, never silently dropped into the
// warehouse.
type Result struct {
	Articles []Article
	Rejected int
}

// Normalize cleans a raw batch. A row is rejected when its timestamp cannot
// be parsed or when it carries neither a title nor a URL.
func Normalize(raw []newsapi.RawArticle) Result {
	logger := slog.Default().With("component", "normalize")
	out := Result{Articles: make([]Article, 0, len(raw))}

	for _, r := range raw {
		title := strings.TrimSpace(r.Title)
		articleURL := strings.TrimSpace(r.URL)
		if title == "" && articleURL == "" {
			out.Rejected++
			logger.Warn("rejecting article without title or url", "published_at", r.PublishedAt)
			continue
		}

		publishedAt, ok := parseTimestamp(strings.TrimSpace(r.PublishedAt))
		if !ok {
			out.Rejected++
			logger.Warn("rejecting article with unparseable timestamp",
				"published_at", r.PublishedAt,
				"url", articleURL,
			)
			continue
		}

		out.Articles = append(out.Articles, Article{
			Title:       title,
			Author:      strings.TrimSpace(r.Author),
			URL:         articleURL,
			SourceID:    strings.TrimSpace(r.Source.ID),
			SourceName:  strings.TrimSpace(r.Source.Name),
			PublishedAt: publishedAt,
		})
	}
	return out
}

// parseTimestamp normalizes every representation of the same instant to one
// UTC value, so the time dimension's exact-match lookups behave.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
