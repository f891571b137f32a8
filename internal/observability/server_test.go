// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package observability_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gatehouse/gatehouse/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startTestServer(t *testing.T, ready observability.ReadinessChecker) *observability.Server {
	t.Helper()
	srv := observability.NewServer("127.0.0.1:0", ready)
	_, err := srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		http.DefaultClient.CloseIdleConnections()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Stop(ctx))
	})
	return srv
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test against local listener
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServerLifecycle(t *testing.T) {
	srv := observability.NewServer("127.0.0.1:0", nil)

	errCh, err := srv.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, srv.Addr())

	// Starting twice is an error.
	_, err = srv.Start()
	assert.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	// Graceful stop closes the error channel without an error.
	select {
	case serveErr, ok := <-errCh:
		assert.False(t, ok, "unexpected error from server: %v", serveErr)
	case <-time.After(5 * time.Second):
		t.Fatal("error channel not closed after stop")
	}

	// Stopping twice is a no-op.
	assert.NoError(t, srv.Stop(ctx))
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("liveness is always ok", func(t *testing.T) {
		srv := startTestServer(t, nil)

		status, body := httpGet(t, fmt.Sprintf("http://%s/healthz/liveness", srv.Addr()))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok\n", body)
	})

	t.Run("readiness follows the checker", func(t *testing.T) {
		ready := false
		srv := startTestServer(t, func() bool { return ready })

		status, _ := httpGet(t, fmt.Sprintf("http://%s/healthz/readiness", srv.Addr()))
		assert.Equal(t, http.StatusServiceUnavailable, status)

		ready = true
		status, body := httpGet(t, fmt.Sprintf("http://%s/healthz/readiness", srv.Addr()))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ok\n", body)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := startTestServer(t, nil)

	srv.Metrics().RecordAuthAttempt("login", "accepted")
	srv.Metrics().RecordAuthAttempt("login", "rejected")
	srv.Metrics().RecordHTTPRequest("/login", "303")

	status, body := httpGet(t, fmt.Sprintf("http://%s/metrics", srv.Addr()))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `gatehouse_auth_attempts_total{flow="login",outcome="accepted"} 1`)
	assert.Contains(t, body, `gatehouse_auth_attempts_total{flow="login",outcome="rejected"} 1`)
	assert.Contains(t, body, `gatehouse_http_requests_total{path="/login",status="303"} 1`)
	// Runtime collectors are registered too.
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	metrics.RecordAuthAttempt("register", "accepted")
	metrics.RecordAuthAttempt("register", "accepted")

	count := testutil.ToFloat64(metrics.AuthAttemptsTotal.WithLabelValues("register", "accepted"))
	assert.Equal(t, float64(2), count)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *observability.Metrics
	assert.NotPanics(t, func() {
		metrics.RecordAuthAttempt("login", "accepted")
		metrics.RecordHTTPRequest("/", "200")
	})
}
