package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/newswire-data/warehouse-pipeline/pkg/config"
)

func testConfig(baseURL string) config.NewsAPIConfig {
	return config.NewsAPIConfig{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		Country:  "gb",
		Language: "en",
		PageSize: 2,
		Timeout:  5 * time.Second,
	}
}

func TestSources(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top-headlines/sources" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("country") != "gb" {
			t.Errorf("country = %q, want gb", r.URL.Query().Get("country"))
		}
		gotKey = r.Header.Get("X-Api-Key")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"sources": []map[string]string{
				{"id": "bbc-news", "name": "BBC News"},
				{"id": "", "name": "unlisted"},
				{"id": "sky-news", "name": "Sky News"},
			},
		})
	}))
	defer server.Close()

	ids, err := NewClient(testConfig(server.URL)).Sources(context.Background())
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(ids) != 2 || ids[0] != "bbc-news" || ids[1] != "sky-news" {
		t.Errorf("ids = %v, want sources without an id skipped", ids)
	}
	if gotKey != "test-key" {
		t.Errorf("X-Api-Key = %q, want test-key", gotKey)
	}
}

func TestFetchWindowPaginates(t *testing.T) {
	// 3 articles with pageSize 2: expect pages 1 and 2.
	total := 3
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			t.Errorf("path = %q", r.URL.Path)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		start := (page - 1) * pageSize
		var articles []RawArticle
		for i := start; i < total && i < start+pageSize; i++ {
			articles = append(articles, RawArticle{
				Source:      SourceRef{ID: r.URL.Query().Get("sources")},
				Title:       fmt.Sprintf("headline %d", i),
				URL:         fmt.Sprintf("https://e.com/%d", i),
				PublishedAt: "2024-01-01T00:00:00Z",
			})
		}
		json.NewEncoder(w).Encode(everythingResponse{
			Status:       "ok",
			TotalResults: total,
			Articles:     articles,
		})
	}))
	defer server.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	got, err := NewClient(testConfig(server.URL)).FetchWindow(context.Background(), []string{"bbc-news"}, from, to, 2)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != total {
		t.Errorf("articles = %d, want %d across pages", len(got), total)
	}
}

func TestFetchWindowMultipleSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(everythingResponse{
			Status:       "ok",
			TotalResults: 1,
			Articles: []RawArticle{{
				Source:      SourceRef{ID: r.URL.Query().Get("sources")},
				Title:       "headline",
				URL:         "https://e.com/1",
				PublishedAt: "2024-01-01T00:00:00Z",
			}},
		})
	}))
	defer server.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := NewClient(testConfig(server.URL)).FetchWindow(context.Background(),
		[]string{"a", "b", "c"}, from, from.AddDate(0, 0, 1), 2)
	if err != nil {
		t.Fatalf("FetchWindow: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("articles = %d, want one per source", len(got))
	}
}

func TestFetchWindowAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(everythingResponse{
			Status:  "error",
			Message: "apiKeyInvalid",
		})
	}))
	defer server.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig(server.URL)
	_, err := NewClient(cfg).FetchWindow(context.Background(), []string{"bbc-news"}, from, from, 1)
	if err == nil {
		t.Fatal("err = nil, want api error surfaced")
	}
}

func TestSourcesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Sources(context.Background())
	if err == nil {
		t.Fatal("err = nil, want status error")
	}
}
