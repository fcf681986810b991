package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxGeometryBytes caps a single GeoJSON download
const maxGeometryBytes = 32 << 20

// GeometryClient downloads GeoJSON documents referenced by records
type GeometryClient struct {
	httpClient *http.Client
	userAgent  string
}

// NewGeometryClient creates a new GeoJSON client
func NewGeometryClient(timeout time.Duration) *GeometryClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeometryClient{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "MeasureTracker/1.0",
	}
}

// Fetch downloads a GeoJSON document. Non-2xx responses and bodies that are not
// JSON are errors.
func (c *GeometryClient) Fetch(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching geometry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geometry returned %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeometryBytes))
	if err != nil {
		return nil, fmt.Errorf("reading geometry: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("geometry body is not valid JSON")
	}

	return json.RawMessage(body), nil
}
