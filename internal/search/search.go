// Package search defines the free-text project search collaborator.
package search

import (
	"context"
	"errors"
)

// ErrUnavailable marks failures to reach the search backend
var ErrUnavailable = errors.New("search unavailable")

// Options narrows what a search returns
type Options struct {
	AttributesToRetrieve []string
}

// Hit is one ranked search result
type Hit struct {
	ID string `json:"id"`
}

// Response holds hits ordered best match first
type Response struct {
	Hits []Hit `json:"hits"`
}

// IDs returns the hit ids in rank order
func (r Response) IDs() []string {
	ids := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

// Searcher runs a ranked free-text search over projects
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) (Response, error)
}

// SearcherFunc adapts a function to Searcher
type SearcherFunc func(ctx context.Context, query string, opts Options) (Response, error)

// Search implements Searcher
func (f SearcherFunc) Search(ctx context.Context, query string, opts Options) (Response, error) {
	return f(ctx, query, opts)
}
