// Package newsapi is the article source: it discovers news sources and
// fetches every article they published inside a date window from a
// NewsAPI-compatible HTTP endpoint.
package newsapi

// SourceRef is the nested source object attached to every raw article.
type SourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawArticle is one article exactly as the API returns it. Author may be
// empty or absent; PublishedAt is an RFC3339 string until the normalizer
// coerces it.
type RawArticle struct {
	Source      SourceRef `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt string    `json:"publishedAt"`
}

// sourcesResponse is the payload of GET /top-headlines/sources.
type sourcesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Sources []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"sources"`
}

// everythingResponse is the payload of GET /everything.
type everythingResponse struct {
	Status       string       `json:"status"`
	Message      string       `json:"message"`
	TotalResults int          `json:"totalResults"`
	Articles     []RawArticle `json:"articles"`
}
