// Package algolia queries a hosted Algolia index through the official client.
package algolia

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/call"
	algoliasearch "github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/transport"

	"measure-tracker/internal/search"
)

// DefaultIndex is the index holding one object per project
const DefaultIndex = "TAX_MEASURES_PROJECTS"

// Client searches one Algolia index
type Client struct {
	api   *algoliasearch.APIClient
	index string
}

// Option configures the underlying transport
type Option func(*transport.Configuration)

// WithBaseURL sends every request to one host, e.g. "http://127.0.0.1:9000"
func WithBaseURL(u string) Option {
	return func(cfg *transport.Configuration) {
		scheme, host, found := strings.Cut(strings.TrimRight(u, "/"), "://")
		if !found {
			scheme, host = "https", scheme
		}
		cfg.Hosts = []transport.StatefulHost{transport.NewStatefulHost(scheme, host, call.IsReadWrite)}
	}
}

// WithTimeout bounds each read request
func WithTimeout(d time.Duration) Option {
	return func(cfg *transport.Configuration) { cfg.ReadTimeout = d }
}

// NewClient creates a search-only client for index
func NewClient(appID, apiKey, index string, opts ...Option) (*Client, error) {
	if index == "" {
		index = DefaultIndex
	}
	cfg := algoliasearch.SearchConfiguration{
		Configuration: transport.Configuration{
			AppID:       appID,
			ApiKey:      apiKey,
			ReadTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&cfg.Configuration)
	}

	api, err := algoliasearch.NewClientWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating algolia client: %w", err)
	}
	return &Client{api: api, index: index}, nil
}

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, query string, opts search.Options) (search.Response, error) {
	params := algoliasearch.NewEmptySearchParamsObject().SetQuery(query)
	if len(opts.AttributesToRetrieve) > 0 {
		params.SetAttributesToRetrieve(opts.AttributesToRetrieve)
	}

	res, err := c.api.SearchSingleIndex(
		c.api.NewApiSearchSingleIndexRequest(c.index).
			WithSearchParams(algoliasearch.SearchParamsObjectAsSearchParams(params)),
		algoliasearch.WithContext(ctx),
	)
	if err != nil {
		return search.Response{}, fmt.Errorf("%w: %v", search.ErrUnavailable, err)
	}

	out := search.Response{Hits: make([]search.Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		id, _ := h.AdditionalProperties["id"].(string)
		if id == "" {
			id = h.ObjectID
		}
		out.Hits = append(out.Hits, search.Hit{ID: id})
	}
	return out, nil
}
