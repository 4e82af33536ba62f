package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
)

// HTTPTestServer creates a test HTTP server with custom handler
func HTTPTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// MockHTTPResponse creates a mock HTTP handler that returns the given response
func MockHTTPResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(statusCode)
		io.WriteString(w, body)
	}
}

// RequestRecorder answers every request with a fixed status and remembers
// the requests it has seen.
type RequestRecorder struct {
	Status int

	mu       sync.Mutex
	requests []*http.Request
}

func (rr *RequestRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rr.mu.Lock()
	rr.requests = append(rr.requests, r.Clone(r.Context()))
	rr.mu.Unlock()

	status := rr.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

// Requests returns a copy of the recorded requests.
func (rr *RequestRecorder) Requests() []*http.Request {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return append([]*http.Request(nil), rr.requests...)
}

// CaptureOutput captures stdout during test execution
func CaptureOutput(t *testing.T, f func()) string {
	t.Helper()
	r, w, _ := os.Pipe()
	stdout := os.Stdout
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = stdout

	out, _ := io.ReadAll(r)
	return string(out)
}
