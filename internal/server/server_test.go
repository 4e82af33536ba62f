package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namada-exporter/namada-exporter/internal/exporter"
	"github.com/namada-exporter/namada-exporter/internal/metrics"
	"github.com/namada-exporter/namada-exporter/internal/testutil"
)

type panickingScraper struct{}

func (panickingScraper) Scrape(context.Context) error { panic("boom") }
func (panickingScraper) Render() ([]byte, error)      { return nil, nil }

type failingRenderer struct{}

func (failingRenderer) Scrape(context.Context) error { return nil }
func (failingRenderer) Render() ([]byte, error)      { return nil, errors.New("encode failed") }

// slowScraper blocks until its scrape deadline expires.
type slowScraper struct{}

func (slowScraper) Scrape(ctx context.Context) error {
	<-ctx.Done()
	return &exporter.ScrapeError{Stage: exporter.StageQuerying, Err: ctx.Err()}
}
func (slowScraper) Render() ([]byte, error) { return nil, nil }

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func newTestServer(t *testing.T, scraper Scraper) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New("127.0.0.1:0", scraper, time.Second).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, panickingScraper{})

	resp, body := get(t, ts.URL+"/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)
	assert.Contains(t, resp.Header.Get("Server"), "namada-exporter/")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, panickingScraper{})

	resp, _ := get(t, ts.URL+"/status")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	q := testutil.NewFakeQuerier()
	ts := newTestServer(t, exporter.New(q, metrics.NewRegistry(), testutil.ValidatorAddress))

	t.Run("successful scrape", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/metrics")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, metrics.ContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, body, "# TYPE namada_validator_uptime_percentage gauge")
		assert.Contains(t, body, "namada_network_active_set_size")
		assert.Contains(t, body, "# EOF")
	})

	t.Run("upstream failure", func(t *testing.T) {
		q.Fail("NodeStatus", errors.New("connection refused"))
		defer q.Fail("NodeStatus", nil)

		resp, body := get(t, ts.URL+"/metrics")

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, body, "scrape failed while querying")
	})

	t.Run("recovers after failure", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/metrics")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `namada_exporter_scrape_failures_total{stage="querying"} 1.0`)
	})
}

func TestMetrics_RenderFailure(t *testing.T) {
	ts := newTestServer(t, failingRenderer{})

	resp, _ := get(t, ts.URL+"/metrics")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRecoverPanic(t *testing.T) {
	ts := newTestServer(t, panickingScraper{})

	resp, _ := get(t, ts.URL+"/metrics")

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, resp.Close)
}

func TestServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New("", panickingScraper{}, 0).Serve(ctx, ln)
	}()

	resp, body := get(t, "http://"+ln.Addr().String()+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_InvalidAddress(t *testing.T) {
	err := New("256.0.0.1:bad", panickingScraper{}, 0).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestMetrics_ScrapeDeadline(t *testing.T) {
	ts := httptest.NewServer(New("127.0.0.1:0", slowScraper{}, 50*time.Millisecond).Handler())
	t.Cleanup(ts.Close)

	start := time.Now()
	resp, body := get(t, ts.URL+"/metrics")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "scrape failed while querying")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWriteTimeoutExceedsScrapeTimeout(t *testing.T) {
	tests := []struct {
		name          string
		scrapeTimeout time.Duration
		expected      time.Duration
	}{
		{"configured", 20 * time.Second, 20*time.Second + writeTimeoutMargin},
		{"default", 0, defaultScrapeTimeout + writeTimeoutMargin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("", slowScraper{}, tt.scrapeTimeout)
			assert.Equal(t, tt.expected, s.writeTimeout())
			assert.Greater(t, s.writeTimeout(), s.scrapeTimeout)
		})
	}
}
