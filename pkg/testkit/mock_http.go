package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport is an http.RoundTripper that serves a scenario's HTTPMocks.
// Install it on pkg/http's DefaultClient; Run does this for you.
type MockTransport struct {
	mu      sync.Mutex
	mocks   []HTTPMock
	calls   []int
	require bool
}

func NewMockTransport(s *Scenario) *MockTransport {
	return &MockTransport{
		mocks:   s.HTTPMocks,
		calls:   make([]int, len(s.HTTPMocks)),
		require: s.RequireMocks,
	}
}

// RoundTrip answers with the first mock whose MatchURL prefixes the request URL.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	url := req.URL.String()
	for i, m := range mt.mocks {
		if m.MatchURL != "" && !strings.HasPrefix(url, m.MatchURL) {
			continue
		}
		mt.calls[i]++
		status := m.Status
		if status == 0 {
			status = http.StatusOK
		}
		h := http.Header{}
		h.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: status,
			Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Header:     h,
			Body:       io.NopCloser(bytes.NewReader(m.Body)),
			Request:    req,
		}, nil
	}

	if mt.require {
		return nil, fmt.Errorf("testkit: unexpected outbound call to %s", url)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Request:    req,
	}, nil
}

// Uncalled returns an error for every required mock that never matched.
func (mt *MockTransport) Uncalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	var errs []error
	for i, m := range mt.mocks {
		if !m.Optional && mt.calls[i] == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock for %q was never called", m.MatchURL))
		}
	}
	return errs
}
