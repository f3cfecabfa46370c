package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/newswire-data/warehouse-pipeline/pkg/config"
	"github.com/newswire-data/warehouse-pipeline/pkg/resilience"

	"golang.org/x/sync/errgroup"
)

// maxPagesPerSource bounds pagination so a single noisy source cannot stall
// the whole extraction.
const maxPagesPerSource = 5

// Client talks to a NewsAPI-compatible endpoint.
type Client struct {
	cfg    config.NewsAPIConfig
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client from configuration.
func NewClient(cfg config.NewsAPIConfig) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default().With("component", "newsapi"),
	}
}

// Sources returns the IDs of every source available for the configured
// country.
func (c *Client) Sources(ctx context.Context) ([]string, error) {
	params := url.Values{}
	if c.cfg.Country != "" {
		params.Set("country", c.cfg.Country)
	}

	var resp sourcesResponse
	if err := c.getJSON(ctx, "/top-headlines/sources", params, &resp); err != nil {
		return nil, fmt.Errorf("fetching sources: %w", err)
	}

	ids := make([]string, 0, len(resp.Sources))
	for _, s := range resp.Sources {
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}
	c.logger.Info("sources discovered", "country", c.cfg.Country, "count", len(ids))
	return ids, nil
}

// FetchWindow fetches all articles published by the given sources between
// from and to. Sources are fetched concurrently with a bounded group; pages
// within one source stay sequential. Any source failing after retries fails
// the whole extraction.
func (c *Client) FetchWindow(ctx context.Context, sources []string, from, to time.Time, concurrency int) ([]RawArticle, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	var mu sync.Mutex
	var all []RawArticle

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			articles, err := c.fetchSource(gctx, source, from, to)
			if err != nil {
				return fmt.Errorf("source %s: %w", source, err)
			}
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Info("extraction window fetched",
		"sources", len(sources),
		"articles", len(all),
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
	)
	return all, nil
}

// fetchSource pages through /everything for one source.
func (c *Client) fetchSource(ctx context.Context, source string, from, to time.Time) ([]RawArticle, error) {
	var articles []RawArticle
	for page := 1; page <= maxPagesPerSource; page++ {
		params := url.Values{}
		params.Set("language", c.cfg.Language)
		params.Set("sources", source)
		params.Set("from", from.Format("2006-01-02"))
		params.Set("to", to.Format("2006-01-02"))
		params.Set("pageSize", strconv.Itoa(c.cfg.PageSize))
		params.Set("page", strconv.Itoa(page))
		params.Set("sortBy", "publishedAt")

		var resp everythingResponse
		err := resilience.Retry(ctx, "newsapi-everything", resilience.RetryConfig{}, func() error {
			return c.getJSON(ctx, "/everything", params, &resp)
		})
		if err != nil {
			return nil, err
		}

		articles = append(articles, resp.Articles...)
		if len(articles) >= resp.TotalResults || len(resp.Articles) == 0 {
			break
		}
	}
	return articles, nil
}

// getJSON performs one GET and decodes the JSON body, treating non-200
// statuses and status:"error" payloads as failures.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if status, msg := apiStatus(out); status != "" && status != "ok" {
		return fmt.Errorf("api error: %s", msg)
	}
	return nil
}

func apiStatus(out any) (status, message string) {
	switch v := out.(type) {
	case *sourcesResponse:
		return v.Status, v.Message
	case *everythingResponse:
		return v.Status, v.Message
	}
	return "", ""
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
