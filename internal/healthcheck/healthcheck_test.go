package healthcheck

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namada-exporter/namada-exporter/internal/config"
	"github.com/namada-exporter/namada-exporter/internal/logger"
	"github.com/namada-exporter/namada-exporter/internal/testutil"
)

func TestPing(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"success", http.StatusOK},
		{"non-success status", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &testutil.RequestRecorder{Status: tt.status}
			server := testutil.HTTPTestServer(t, recorder.ServeHTTP)

			h := New(&config.HealthCheckConfig{PingURL: server.URL + "/ping", Timeout: "1s"})
			status, err := h.Ping(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
			requests := recorder.Requests()
			require.Len(t, requests, 1)
			assert.Equal(t, http.MethodGet, requests[0].Method)
			assert.Equal(t, "/ping", requests[0].URL.Path)
			assert.Contains(t, requests[0].Header.Get("User-Agent"), "namada-exporter/")
		})
	}
}

func TestPing_Unreachable(t *testing.T) {
	server := testutil.HTTPTestServer(t, testutil.MockHTTPResponse(http.StatusOK, ""))
	url := server.URL
	server.Close()

	h := New(&config.HealthCheckConfig{PingURL: url, Timeout: "1s"})
	_, err := h.Ping(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestStart(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	recorder := &testutil.RequestRecorder{Status: http.StatusTeapot}
	server := testutil.HTTPTestServer(t, recorder.ServeHTTP)
	h := New(&config.HealthCheckConfig{PingURL: server.URL, PingRate: "20ms", Timeout: "1s"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(recorder.Requests()) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("health check loop did not stop")
	}

	assert.Contains(t, buf.String(), "non-success status: 418")
}
