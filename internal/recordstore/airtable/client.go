// Package airtable reads tables from the Airtable REST API.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"measure-tracker/internal/models"
)

// DefaultAPIURL is the public Airtable API root
const DefaultAPIURL = "https://api.airtable.com/v0"

// Client fetches every record of a table, following offset pagination
type Client struct {
	httpClient *http.Client
	apiURL     string
	baseID     string
	apiKey     string
	maxRetries int
	backoff    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithAPIURL overrides the API root
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithRetry sets how often a throttled or failed page is retried and the
// initial delay, doubled after each attempt
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// NewClient creates a client for one Airtable base
func NewClient(baseID, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     DefaultAPIURL,
		baseID:     baseID,
		apiKey:     apiKey,
		maxRetries: 3,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type listResponse struct {
	Records []models.Record `json:"records"`
	Offset  string          `json:"offset"`
}

// APIError is a non-2xx Airtable response
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("airtable returned %d: %s: %s", e.StatusCode, e.Type, e.Message)
	case e.Type != "":
		return fmt.Sprintf("airtable returned %d: %s", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("airtable returned %d", e.StatusCode)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Fetch implements recordstore.Source
func (c *Client) Fetch(ctx context.Context, table string) ([]models.Record, error) {
	var records []models.Record
	offset := ""
	for {
		page, err := c.fetchPageWithRetry(ctx, table, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Offset == "" {
			break
		}
		offset = page.Offset
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

func (c *Client) fetchPageWithRetry(ctx context.Context, table, offset string) (*listResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0

	return backoff.Retry(ctx, func() (*listResponse, error) {
		page, err := c.fetchPage(ctx, table, offset)
		if err == nil {
			return page, nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.retryable() {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(c.maxRetries+1)))
}

func (c *Client) fetchPage(ctx context.Context, table, offset string) (*listResponse, error) {
	params := url.Values{}
	params.Set("pageSize", "100")
	if offset != "" {
		params.Set("offset", offset)
	}
	reqURL := fmt.Sprintf("%s/%s/%s?%s", c.apiURL, c.baseID, url.PathEscape(table), params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, parseError(resp.StatusCode, body)
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding %s page: %w", table, err)
	}
	return &page, nil
}

// parseError reads both error shapes Airtable returns: a bare string such as
// "NOT_FOUND" or an object with type and message
func parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 {
		return apiErr
	}
	var s string
	if json.Unmarshal(envelope.Error, &s) == nil {
		apiErr.Type = s
		return apiErr
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &obj) == nil {
		apiErr.Type = obj.Type
		apiErr.Message = obj.Message
	}
	return apiErr
}
