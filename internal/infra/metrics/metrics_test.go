package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveRequest("GetMovies", "ok", 10*time.Millisecond)
	m.ObserveRequest("GetMovies", "ok", 20*time.Millisecond)
	m.CacheEvent("GetMovies", CacheHit)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GetMovies", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Cache.WithLabelValues("GetMovies", CacheHit)))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "moviegraph_graphql_requests_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GetMovies", "ok", time.Millisecond)
	m.CacheEvent("GetMovies", CacheMiss)
}
