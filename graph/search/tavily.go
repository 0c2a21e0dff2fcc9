package search

import (
	"context"
	"net/http"
)

// TavilyURL is the Tavily search endpoint.
const TavilyURL = "https://api.tavily.com/search"

// Tavily searches with the Tavily API.
type Tavily struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type tavilyRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	SearchDepth    string   `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string   `json:"title"`
		URL     string   `json:"url"`
		Content string   `json:"content"`
		Score   *float64 `json:"score"`
	} `json:"results"`
}

// Search implements Engine.
func (t *Tavily) Search(ctx context.Context, q Query) ([]Result, error) {
	payload := tavilyRequest{Query: q.Text, MaxResults: q.MaxResults, SearchDepth: "basic"}
	if q.Domain != "" {
		payload.IncludeDomains = []string{q.Domain}
	}

	var resp tavilyResponse
	headers := map[string]string{"Authorization": "Bearer " + t.apiKey}
	if err := postJSON(ctx, t.client, t.baseURL, headers, payload, &resp); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return results, nil
}
