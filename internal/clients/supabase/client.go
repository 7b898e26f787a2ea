// Package supabase provides a PostgREST-style table store client.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qoishaidar/uang/internal/common"
	"github.com/qoishaidar/uang/internal/interfaces"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client talks to a Supabase (PostgREST) REST endpoint. Each table is exposed
// under /rest/v1/{table} with equality filters ("id=eq.7") and ordering
// ("order=sort_order.asc").
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// Compile-time interface check
var _ interfaces.TableStore = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client (used by tests)
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Supabase table store client
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a table store API error
type APIError struct {
	StatusCode int
	Message    string
	Table      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase API error: %s (status: %d, table: %s)", e.Message, e.StatusCode, e.Table)
}

// do performs a rate-limited request against one table. body may be nil;
// result may be nil for calls that return no representation.
func (c *Client) do(ctx context.Context, method, table string, params url.Values, prefer string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	c.logger.Debug().Str("method", method).Str("table", table).Msg("Supabase request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Table:      table,
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// selectRows fetches all rows of a table with the given params.
func selectRows[T any](ctx context.Context, c *Client, table string, params url.Values) ([]T, error) {
	var rows []T
	if err := c.do(ctx, http.MethodGet, table, params, "", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// selectOne fetches a single row by equality filter.
func selectOne[T any](ctx context.Context, c *Client, table string, params url.Values) (*T, error) {
	params.Set("limit", "1")
	rows, err := selectRows[T](ctx, c, table, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s row not found", table)
	}
	return &rows[0], nil
}

// insertRow inserts a row and returns the stored representation, which carries
// the server-assigned id.
func insertRow[T any](ctx context.Context, c *Client, table string, row *T) (*T, error) {
	var rows []T
	if err := c.do(ctx, http.MethodPost, table, nil, "return=representation", row, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s insert returned no representation", table)
	}
	return &rows[0], nil
}

func eqFilter(column string, value interface{}) url.Values {
	params := url.Values{}
	params.Set(column, fmt.Sprintf("eq.%v", value))
	return params
}

// orEqFilter builds a PostgREST or= filter matching value in any of columns.
func orEqFilter(value interface{}, columns ...string) url.Values {
	terms := make([]string, len(columns))
	for i, col := range columns {
		terms[i] = fmt.Sprintf("%s.eq.%v", col, value)
	}
	params := url.Values{}
	params.Set("or", "("+strings.Join(terms, ",")+")")
	return params
}
