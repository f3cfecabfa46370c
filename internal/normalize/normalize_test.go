package normalize

import (
	"testing"
	"time"

	"github.com/newswire-data/warehouse-pipeline/internal/newsapi"
)

func raw(title, author, url, publishedAt string) newsapi.RawArticle {
	return newsapi.RawArticle{
		Source:      newsapi.SourceRef{ID: "bbc-news", Name: "BBC News"},
		Author:      author,
		Title:       title,
		URL:         url,
		PublishedAt: publishedAt,
	}
}

func TestNormalizeTrimsFields(t *testing.T) {
	res := Normalize([]newsapi.RawArticle{
		{
			Source:      newsapi.SourceRef{ID: " bbc-news ", Name: " BBC News "},
			Author:      "  Jane Doe ",
			Title:       "  Headline ",
			URL:         " https://e.com/1 ",
			PublishedAt: "2024-01-01T00:00:00Z",
		},
	})

	if len(res.Articles) != 1 {
		t.Fatalf("articles = %d, want 1", len(res.Articles))
	}
	a := res.Articles[0]
	if a.Title != "Headline" || a.Author != "Jane Doe" || a.URL != "https://e.com/1" {
		t.Errorf("fields not trimmed: %+v", a)
	}
	if a.SourceID != "bbc-news" || a.SourceName != "BBC News" {
		t.Errorf("source fields not split/trimmed: %+v", a)
	}
}

func TestNormalizeTimestampVariantsSameInstant(t *testing.T) {
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []string{
		"2024-01-01T12:00:00Z",
		"2024-01-01T13:00:00+01:00",
		"2024-01-01T12:00:00",
	}
	for _, ts := range tests {
		res := Normalize([]newsapi.RawArticle{raw("t", "a", "https://e.com/1", ts)})
		if len(res.Articles) != 1 {
			t.Fatalf("%q: rejected, want accepted", ts)
		}
		if !res.Articles[0].PublishedAt.Equal(want) {
			t.Errorf("%q parsed to %v, want %v", ts, res.Articles[0].PublishedAt, want)
		}
		if res.Articles[0].PublishedAt.Location() != time.UTC {
			t.Errorf("%q not normalized to UTC", ts)
		}
	}
}

func TestNormalizeMissingAuthorSentinel(t *testing.T) {
	res := Normalize([]newsapi.RawArticle{
		raw("t1", "", "https://e.com/1", "2024-01-01T00:00:00Z"),
		raw("t2", "   ", "https://e.com/2", "2024-01-01T00:00:00Z"),
	})
	if len(res.Articles) != 2 {
		t.Fatalf("articles = %d, want 2", len(res.Articles))
	}
	if res.Articles[0].Author != res.Articles[1].Author {
		t.Errorf("absent and blank author must normalize to the same sentinel, got %q and %q",
			res.Articles[0].Author, res.Articles[1].Author)
	}
	if res.Articles[0].Author != "" {
		t.Errorf("sentinel = %q, want empty string", res.Articles[0].Author)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   newsapi.RawArticle
	}{
		{"unparseable timestamp", raw("t", "a", "https://e.com/1", "yesterday")},
		{"empty timestamp", raw("t", "a", "https://e.com/1", "")},
		{"no title and no url", raw("", "a", "", "2024-01-01T00:00:00Z")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize([]newsapi.RawArticle{tt.in})
			if len(res.Articles) != 0 {
				t.Errorf("accepted, want rejected")
			}
			if res.Rejected != 1 {
				t.Errorf("rejected = %d, want 1", res.Rejected)
			}
		})
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	res := Normalize(nil)
	if len(res.Articles) != 0 || res.Rejected != 0 {
		t.Errorf("empty input: got %d articles, %d rejected", len(res.Articles), res.Rejected)
	}
}
