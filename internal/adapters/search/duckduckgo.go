package search

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"bizplanner/pkg/errors"
)

const (
	duckDuckGoLiteURL   = "https://lite.duckduckgo.com/lite/"
	duckDuckGoUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DuckDuckGo scrapes the DuckDuckGo lite HTML interface.
type DuckDuckGo struct {
	client     *http.Client
	endpoint   string
	limiter    *rate.Limiter
	maxResults int
}

// DuckDuckGoOption customizes a DuckDuckGo searcher.
type DuckDuckGoOption func(*DuckDuckGo)

// WithDuckDuckGoEndpoint overrides the lite endpoint (used by tests).
func WithDuckDuckGoEndpoint(endpoint string) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.endpoint = endpoint }
}

// WithDuckDuckGoHTTPClient overrides the HTTP client.
func WithDuckDuckGoHTTPClient(client *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) { d.client = client }
}

// NewDuckDuckGo creates a searcher paced at ratePerSecond queries per second.
// A non-positive rate disables pacing.
func NewDuckDuckGo(ratePerSecond float64, maxResults int, opts ...DuckDuckGoOption) *DuckDuckGo {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	d := &DuckDuckGo{
		client:     &http.Client{Timeout: 30 * time.Second},
		endpoint:   duckDuckGoLiteURL,
		limiter:    rate.NewLimiter(limit, 1),
		maxResults: maxResults,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search posts the query to the lite page and parses the result table.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "query is empty")
	}

	if err := d.limiter.Wait(ctx); err != nil {
		// rate.Limiter refuses early when the wait would outlast the deadline
		if ctx.Err() == nil {
			return nil, context.DeadlineExceeded
		}
		return nil, ctx.Err()
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build duckduckgo request")
	}
	req.Header.Set("User-Agent", duckDuckGoUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError(d.Name(), resp.StatusCode, body)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "parse duckduckgo html")
	}
	return parseLiteResults(doc, d.maxResults), nil
}

// parseLiteResults pairs each a.result-link with the td.result-snippet that
// follows it in document order.
func parseLiteResults(doc *goquery.Document, limit int) []Hit {
	snippets := doc.Find("td.result-snippet").Map(func(_ int, s *goquery.Selection) string {
		return strings.Join(strings.Fields(s.Text()), " ")
	})

	var hits []Hit
	doc.Find("a.result-link").EachWithBreak(func(i int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Text())
		href := resolveResultURL(s.AttrOr("href", ""))
		if title == "" || href == "" {
			return true
		}

		hit := Hit{Title: title, URL: href}
		if i < len(snippets) {
			hit.Snippet = snippets[i]
		}
		hits = append(hits, hit)
		return len(hits) < limit
	})
	return hits
}

// resolveResultURL unwraps DuckDuckGo redirect links (/l/?uddg=<target>).
func resolveResultURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" && strings.Contains(u.Host+u.Path, "duckduckgo.com/l") {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}
