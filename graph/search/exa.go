package search

import (
	"context"
	"net/http"
)

// ExaURL is the Exa search endpoint.
const ExaURL = "https://api.exa.ai/search"

// Exa searches with the Exa API, requesting page text with every hit.
type Exa struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type exaRequest struct {
	Query          string      `json:"query"`
	NumResults     int         `json:"numResults,omitempty"`
	IncludeDomains []string    `json:"includeDomains,omitempty"`
	Contents       exaContents `json:"contents"`
}

type exaContents struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []struct {
		Title string   `json:"title"`
		URL   string   `json:"url"`
		Text  string   `json:"text"`
		Score *float64 `json:"score"`
	} `json:"results"`
}

// Search implements Engine.
func (e *Exa) Search(ctx context.Context, q Query) ([]Result, error) {
	payload := exaRequest{Query: q.Text, NumResults: q.MaxResults, Contents: exaContents{Text: true}}
	if q.Domain != "" {
		payload.IncludeDomains = []string{q.Domain}
	}

	var resp exaResponse
	if err := postJSON(ctx, e.client, e.baseURL, map[string]string{"x-api-key": e.apiKey}, payload, &resp); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Text, Score: r.Score})
	}
	return results, nil
}
