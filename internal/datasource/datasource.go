// Package datasource fetches quotes, company overviews and statement tables
// from Korean market data sites. It defines a common DataSource interface,
// the Naver Finance and WiseReport sources, the primary/fallback statement
// Resolver and the Aggregator that assembles a StockProfile.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/seenimoa/krxvalue/pkg/models"
)

// DataSource defines the common interface that all data sources implement.
// Each source may support a subset of methods; unsupported methods return
// ErrNotSupported.
type DataSource interface {
	// Name returns the human-readable name of this data source.
	Name() string

	// GetQuote returns the latest price and share count for the ticker.
	GetQuote(ctx context.Context, ticker string) (*models.Quote, error)

	// GetFinancials returns the statement history for the ticker.
	GetFinancials(ctx context.Context, ticker string) (models.FinancialSeries, error)

	// GetOverview returns the company description text.
	GetOverview(ctx context.Context, ticker string) (string, error)
}

// StatementSource is the part of a DataSource the Resolver needs.
type StatementSource interface {
	Name() string
	GetFinancials(ctx context.Context, ticker string) (models.FinancialSeries, error)
}

// --- Sentinel errors ---

// ErrNotSupported is returned when a data source does not support a method.
var ErrNotSupported = errors.New("operation not supported by this data source")

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrRateLimited is returned when a request is throttled, locally or by the
// remote site.
var ErrRateLimited = errors.New("rate limited by data source")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default request rate per source (requests per second).
	DefaultRateLimit = 2

	// DefaultCacheTTL is how long fetched pages and quotes are reused.
	DefaultCacheTTL = time.Minute
)

// settings is the shared configuration of a source.
type settings struct {
	baseURL  string
	apiURL   string
	client   *http.Client
	limiter  *rate.Limiter
	cacheTTL time.Duration
}

func newSettings(baseURL, apiURL string, opts []Option) settings {
	s := settings{
		baseURL:  baseURL,
		apiURL:   apiURL,
		client:   &http.Client{Timeout: DefaultTimeout},
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a source.
type Option func(*settings)

// WithBaseURL sets the site root, e.g. "https://finance.naver.com".
func WithBaseURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithAPIURL sets the JSON API root of sources that have one.
func WithAPIURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.apiURL = u
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.client = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit sets the request rate. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *settings) {
		if burst < 1 {
			burst = 1
		}
		limit := rate.Limit(perSecond)
		if perSecond <= 0 {
			limit = rate.Inf
		}
		s.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithCacheTTL sets how long fetched data is reused. Zero disables caching.
func WithCacheTTL(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.cacheTTL = d
		}
	}
}

// get performs a rate-limited GET and returns the body decoded to UTF-8.
// The charset is taken from the Content-Type header or sniffed from the
// document, so EUC-KR pages come back as UTF-8.
func (s *settings) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, url)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return io.ReadAll(r)
}

// getDocument fetches url and parses it as HTML.
func (s *settings) getDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := s.get(ctx, url, map[string]string{"Accept": "text/html"})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// --- Simple in-memory cache ---

// CacheEntry holds a cached value with expiration.
type CacheEntry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// Cache is a simple thread-safe in-memory cache with TTL.
// A cache with a zero TTL stores nothing.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry[V]
	ttl     time.Duration
}

// NewCache creates a new cache with the given default TTL.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]CacheEntry[V]),
		ttl:     ttl,
	}
}

// Get retrieves a value from the cache. The zero value and false are
// returned when the key is missing or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.ExpiresAt) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores a value in the cache with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = CacheEntry[V]{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

// Invalidate removes a key from the cache.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Flush removes all entries from the cache.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]CacheEntry[V])
	c.mu.Unlock()
}

// Cleanup removes expired entries. Can be called periodically.
func (c *Cache[V]) Cleanup() {
	c.mu.Lock()
	now := time.Now()
	for k, v := range c.entries {
		if now.After(v.ExpiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
