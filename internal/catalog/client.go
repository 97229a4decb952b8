// Package catalog talks to the remote product catalog API.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"shopapp/internal/domain"
	applog "shopapp/internal/log"
	"shopapp/internal/metrics"
)

// DefaultBaseURL is the public catalog the storefront was built against.
const DefaultBaseURL = "https://fakestoreapi.com"

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

var (
	// ErrFetchFailed matches every transport, status and decoding failure.
	ErrFetchFailed = errors.New("catalog: fetch failed")
	// ErrNotFound is returned by GetProductByID for unknown ids.
	ErrNotFound = errors.New("catalog: product not found")

	errEmptyBody = errors.New("empty body")
)

// FetchError carries the detail of a failed request for logs. It matches
// ErrFetchFailed under errors.Is.
type FetchError struct {
	Endpoint string
	Status   int // 0 when no response arrived
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

type Options struct {
	BaseURL       string
	Timeout       time.Duration // 0 means no client timeout
	RatePerSecond float64       // 0 means unthrottled
	Burst         int
	HTTPClient    *http.Client
	Metrics       *metrics.Metrics
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid catalog base URL %q: scheme must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Client{httpClient: hc, baseURL: u.String(), limiter: limiter, metrics: opts.Metrics}, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.get(ctx, "products", "/products", &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.get(ctx, "categories", "/products/categories", &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProductsByCategory uses the catalog's own category filter.
func (c *Client) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.get(ctx, "products_by_category", "/products/category/"+url.PathEscape(category), &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProductByID returns ErrNotFound for a 404 or an empty body; the public
// catalog answers unknown ids with an empty 200.
func (c *Client) GetProductByID(ctx context.Context, id int) (domain.Product, error) {
	var p *domain.Product
	err := c.get(ctx, "product", "/products/"+strconv.Itoa(id), &p, true)
	switch {
	case isMissing(err):
		return domain.Product{}, ErrNotFound
	case err != nil:
		return domain.Product{}, err
	case p == nil:
		return domain.Product{}, ErrNotFound
	}
	return *p, nil
}

// isMissing reports whether err is the catalog's answer for an unknown
// resource rather than a failure.
func isMissing(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && (fe.Status == http.StatusNotFound || errors.Is(fe.Err, errEmptyBody))
}

// get fetches path into out. With lookup set, a missing resource is an
// expected answer: it is counted as not_found and not logged.
func (c *Client) get(ctx context.Context, endpoint, path string, out any, lookup bool) (err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		switch {
		case err == nil:
		case lookup && isMissing(err):
			outcome = "not_found"
		default:
			outcome = "fetch_failed"
			applog.Warn(nil, "catalog.fetch.fail", err, map[string]any{"endpoint": endpoint})
		}
		c.metrics.ObserveCatalog(endpoint, outcome, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "shopapp/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: errEmptyBody}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
