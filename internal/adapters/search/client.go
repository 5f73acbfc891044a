package search

import (
	"context"
	"strings"
	"time"

	"bizplanner/internal/adapters/retry"
	"bizplanner/internal/metrics"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
)

// Ensure Client implements Tool
var _ Tool = (*Client)(nil)

// Client routes queries to the Searcher registered for each provider.
// Every call is bounded by a timeout, retried on transient failures and
// served from the cache when possible.
type Client struct {
	searchers  map[Provider]Searcher
	cache      Cache
	cacheTTL   time.Duration
	timeout    time.Duration
	maxResults int
	retry      *retry.Middleware
	log        *logger.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithCache enables result caching with the given TTL.
func WithCache(cache Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxResults caps the hits returned per call.
func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithRetry retries transient backend failures.
func WithRetry(m *retry.Middleware) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.retry = m
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a Client over the given provider routes.
func NewClient(searchers map[Provider]Searcher, opts ...ClientOption) *Client {
	routes := make(map[Provider]Searcher, len(searchers))
	for provider, searcher := range searchers {
		if searcher != nil {
			routes[provider] = searcher
		}
	}

	c := &Client{
		searchers:  routes,
		timeout:    15 * time.Second,
		maxResults: 5,
		retry:      retry.New(retry.Config{MaxRetries: 0}),
		log:        logger.Get().With("component", "search"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers lists the routed providers.
func (c *Client) Providers() []Provider {
	out := make([]Provider, 0, len(c.searchers))
	for _, p := range AllProviders() {
		if _, ok := c.searchers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Search runs query against provider.
func (c *Client) Search(ctx context.Context, query string, provider Provider) (ToolResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return ToolResult{}, errors.Wrap(errors.ErrInvalidInput, "search query is empty")
	}

	searcher, ok := c.searchers[provider]
	if !ok {
		return ToolResult{}, errors.Wrapf(errors.ErrToolUnavailable, "no searcher configured for %s", provider)
	}

	result := ToolResult{Provider: provider, Query: query}

	key := CacheKey(provider, query)
	if hits, ok := c.lookup(ctx, key); ok {
		metrics.RecordToolCacheHit(provider.String())
		result.Hits = hits
		result.Cached = true
		return result, nil
	}

	start := time.Now()
	hits, err := retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]Hit, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		hits, err := searcher.Search(callCtx, query)
		if err != nil {
			err = classify(provider, callCtx, err)
			c.log.Debugw("search attempt failed", "provider", provider, "backend", searcher.Name(), "error", err)
		}
		return hits, err
	})
	latency := time.Since(start)
	metrics.RecordToolCall(provider.String(), latency, err)
	if err != nil {
		return ToolResult{}, err
	}

	if len(hits) > c.maxResults {
		hits = hits[:c.maxResults]
	}
	result.Hits = hits

	c.log.Debugw("search completed",
		"provider", provider,
		"backend", searcher.Name(),
		"hits", len(hits),
		"latency", latency,
	)

	c.store(ctx, key, hits)
	return result, nil
}

func (c *Client) lookup(ctx context.Context, key string) ([]Hit, bool) {
	if c.cache == nil {
		return nil, false
	}
	hits, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			c.log.Warnw("search cache read failed", "error", err)
		}
		return nil, false
	}
	return hits, true
}

func (c *Client) store(ctx context.Context, key string, hits []Hit) {
	if c.cache == nil || len(hits) == 0 {
		return
	}
	if err := c.cache.Set(ctx, key, hits, c.cacheTTL); err != nil {
		c.log.Warnw("search cache write failed", "error", err)
	}
}
