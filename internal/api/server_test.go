package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedloom/feedloom/internal/feed"
)

type stubIngestor struct {
	feeds    []feed.SourceConfig
	statuses map[string]RunStatus
	trigErr  error
	lastForce bool
}

func (s *stubIngestor) Feeds() []feed.SourceConfig { return s.feeds }

func (s *stubIngestor) Trigger(_ context.Context, feedID string, force bool) (RunStatus, error) {
	s.lastForce = force
	if s.trigErr != nil {
		return RunStatus{FeedID: feedID, Status: "error", Error: s.trigErr.Error()}, s.trigErr
	}
	st, ok := s.statuses[feedID]
	if !ok {
		return RunStatus{}, ErrUnknownFeed
	}
	return st, nil
}

func (s *stubIngestor) LastStatus(feedID string) (RunStatus, bool) {
	st, ok := s.statuses[feedID]
	return st, ok
}

func newTestServer(ing *stubIngestor) *httptest.Server {
	return httptest.NewServer(NewServer(ing, zap.NewNop()).Handler())
}

func TestListFeeds(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubIngestor{
		feeds: []feed.SourceConfig{
			{FeedID: "f1", Name: "Go Blog", Type: feed.SourceRSS, URL: "https://go.dev/blog/feed.atom", DailyPostLimit: 5},
		},
	})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/feeds/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Feeds []feedSummary `json:"feeds"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Feeds, 1)
	require.Equal(t, "f1", body.Feeds[0].FeedID)
	require.Equal(t, feed.SourceRSS, body.Feeds[0].Type)
}

func TestRunFeed(t *testing.T) {
	t.Parallel()

	ing := &stubIngestor{
		statuses: map[string]RunStatus{
			"f1": {RunID: "run-1", FeedID: "f1", Status: "ok", Articles: 3, StartedAt: time.Now()},
		},
	}
	srv := newTestServer(ing)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/feeds/f1/run?force=true", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, ing.lastForce)

	var st RunStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.Equal(t, "run-1", st.RunID)
	require.Equal(t, 3, st.Articles)
}

func TestRunFeed_UnknownFeedIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubIngestor{statuses: map[string]RunStatus{}})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/feeds/missing/run", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunFeed_PipelineFailureIs502(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubIngestor{trigErr: errors.New("fetch_source failed")})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/feeds/f1/run", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var st RunStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	require.Equal(t, "error", st.Status)
}

func TestFeedStatus(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubIngestor{
		statuses: map[string]RunStatus{"f1": {RunID: "run-9", FeedID: "f1", Status: "ok"}},
	})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/feeds/f1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/v1/feeds/nope/status")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubIngestor{})
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
