package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"bizplanner/pkg/errors"
	"bizplanner/pkg/templates"
)

const exaSearchURL = "https://api.exa.ai/search"

// Exa calls the Exa neural search API.
type Exa struct {
	apiKey     string
	endpoint   string
	client     *http.Client
	maxResults int
}

// ExaOption customizes an Exa searcher.
type ExaOption func(*Exa)

// WithExaEndpoint overrides the search endpoint (used by tests).
func WithExaEndpoint(endpoint string) ExaOption {
	return func(e *Exa) { e.endpoint = endpoint }
}

// WithExaHTTPClient overrides the HTTP client.
func WithExaHTTPClient(client *http.Client) ExaOption {
	return func(e *Exa) { e.client = client }
}

// NewExa creates an Exa searcher.
func NewExa(apiKey string, maxResults int, opts ...ExaOption) *Exa {
	if maxResults <= 0 {
		maxResults = 5
	}
	e := &Exa{
		apiKey:     apiKey,
		endpoint:   exaSearchURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxResults: maxResults,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exa) Name() string { return "exa" }

type exaRequest struct {
	Query      string      `json:"query"`
	Type       string      `json:"type"`
	NumResults int         `json:"numResults"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text exaTextOptions `json:"text"`
}

type exaTextOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Text          string `json:"text"`
		Summary       string `json:"summary"`
		PublishedDate string `json:"publishedDate"`
	} `json:"results"`
}

// Search queries Exa with automatic search type selection.
func (e *Exa) Search(ctx context.Context, query string) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "query is empty")
	}
	if e.apiKey == "" {
		return nil, errors.Wrap(errors.ErrToolUnavailable, "exa api key not configured")
	}

	payload, err := json.Marshal(exaRequest{
		Query:      query,
		Type:       "auto",
		NumResults: e.maxResults,
		Contents:   exaContents{Text: exaTextOptions{MaxCharacters: 1000}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal exa request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build exa request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError(e.Name(), resp.StatusCode, body)
	}

	var decoded exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decode exa response")
	}

	hits := make([]Hit, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.URL == "" {
			continue
		}
		snippet := r.Summary
		if strings.TrimSpace(snippet) == "" {
			snippet = r.Text
		}
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = r.URL
		}
		hits = append(hits, Hit{
			Title:   title,
			URL:     r.URL,
			Snippet: templates.Truncate(strings.Join(strings.Fields(snippet), " "), maxSnippetRunes),
		})
		if len(hits) == e.maxResults {
			break
		}
	}
	return hits, nil
}
