package algolia

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"measure-tracker/internal/search"
)

const searchResponse = `{
	"hits": [
		{"id": "rec2", "objectID": "o2"},
		{"objectID": "rec7"}
	],
	"nbHits": 2,
	"page": 0,
	"nbPages": 1,
	"hitsPerPage": 20,
	"processingTimeMS": 1,
	"exhaustiveNbHits": true,
	"query": "main street",
	"params": "query=main+street"
}`

func TestSearch(t *testing.T) {
	var gotPath, gotApp, gotKey, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotApp = r.Header.Get("X-Algolia-Application-Id")
		gotKey = r.Header.Get("X-Algolia-API-Key")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	c, err := NewClient("APP", "secret", "", WithBaseURL(srv.URL))
	require.NoError(t, err)
	resp, err := c.Search(context.Background(), "main street", search.Options{AttributesToRetrieve: []string{"id"}})
	require.NoError(t, err)

	assert.Equal(t, "/1/indexes/TAX_MEASURES_PROJECTS/query", gotPath)
	assert.Equal(t, "APP", gotApp)
	assert.Equal(t, "secret", gotKey)
	assert.Contains(t, gotBody, `"main street"`)
	assert.Contains(t, gotBody, `"attributesToRetrieve":["id"]`)
	assert.Equal(t, []string{"rec2", "rec7"}, resp.IDs())
}

func TestSearch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Invalid Application-ID or API key","status":403}`))
	}))
	defer srv.Close()

	c, err := NewClient("APP", "bad", "projects", WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "x", search.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrUnavailable)
}

func TestSearch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient("APP", "key", "", WithBaseURL(srv.URL))
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "x", search.Options{})
	assert.ErrorIs(t, err, search.ErrUnavailable)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient("", "", "")
	assert.Error(t, err)
}
