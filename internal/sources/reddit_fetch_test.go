package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedloom/feedloom/internal/feed"
)

const sampleListing = `{
  "data": {
    "children": [
      {"data": {"id": "abc", "title": "hello", "permalink": "/r/golang/comments/abc/hello/", "created_utc": 1772446800, "score": 5}}
    ]
  }
}`

func TestRedditStrategy_FetchSourceData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/r/golang/hot.json", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(sampleListing))
	}))
	defer srv.Close()

	s := NewRedditStrategy(testDeps(), srv.Client(), "feedloom-test/1.0")
	s.baseURL = srv.URL

	payload, err := s.FetchSourceData(context.Background(), feed.SourceConfig{
		Options: map[string]any{"subreddit": "golang"},
	}, 0)
	require.NoError(t, err)

	listing, ok := payload.(*redditListing)
	require.True(t, ok)
	require.Len(t, listing.Data.Children, 1)
	require.Equal(t, "hello", listing.Data.Children[0].Data.Title)
}

func TestRedditStrategy_RateLimitedIsVendorAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewRedditStrategy(testDeps(), srv.Client(), "feedloom-test/1.0")
	s.baseURL = srv.URL

	_, err := s.FetchSourceData(context.Background(), feed.SourceConfig{
		Options: map[string]any{"subreddit": "golang"},
	}, 0)

	var apiErr *feed.VendorAPIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "reddit", apiErr.Provider)
}
