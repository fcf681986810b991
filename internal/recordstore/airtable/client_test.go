package airtable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_FollowsOffset(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		assert.Equal(t, "/appBase/Grantees", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("offset") {
		case "":
			_, _ = w.Write([]byte(`{"records":[{"id":"g1","fields":{"Name":"Boulder"}}],"offset":"itr2"}`))
		case "itr2":
			_, _ = w.Write([]byte(`{"records":[{"id":"g2","fields":{"Name":"Lafayette"}}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewClient("appBase", "key123", WithAPIURL(srv.URL))
	records, err := c.Fetch(context.Background(), "Grantees")
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "g1", records[0].ID)
	assert.Equal(t, "Lafayette", records[1].String("Name"))
	assert.Equal(t, []string{"Bearer key123", "Bearer key123"}, auth)
}

func TestFetch_EscapesTableName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appBase/Fiscal Years", r.URL.Path)
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	records, err := NewClient("appBase", "k", WithAPIURL(srv.URL)).Fetch(context.Background(), "Fiscal Years")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFetch_ErrorShapes(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"string", http.StatusNotFound, `{"error":"NOT_FOUND"}`, "airtable returned 404: NOT_FOUND"},
		{"object", http.StatusUnprocessableEntity, `{"error":{"type":"INVALID_REQUEST","message":"bad offset"}}`, "airtable returned 422: INVALID_REQUEST: bad offset"},
		{"empty", http.StatusForbidden, ``, "airtable returned 403"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient("b", "k", WithAPIURL(srv.URL)).Fetch(context.Background(), "Awards")
			require.Error(t, err)
			assert.EqualError(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.code, apiErr.StatusCode)
		})
	}
}

func TestFetch_RetriesThrottledPages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"records":[{"id":"a1","fields":{}}]}`))
	}))
	defer srv.Close()

	c := NewClient("b", "k", WithAPIURL(srv.URL), WithRetry(3, time.Millisecond))
	records, err := c.Fetch(context.Background(), "Awards")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("b", "k", WithAPIURL(srv.URL), WithRetry(2, time.Millisecond))
	_, err := c.Fetch(context.Background(), "Awards")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestFetch_StopsRetryingWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("b", "k", WithAPIURL(srv.URL), WithRetry(5, time.Hour))
	_, err := c.Fetch(ctx, "Awards")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"AUTHENTICATION_REQUIRED","message":"Authentication required"}}`))
	}))
	defer srv.Close()

	c := NewClient("b", "k", WithAPIURL(srv.URL), WithRetry(3, time.Millisecond))
	_, err := c.Fetch(context.Background(), "Awards")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.EqualError(t, err, "airtable returned 401: AUTHENTICATION_REQUIRED: Authentication required")
}
