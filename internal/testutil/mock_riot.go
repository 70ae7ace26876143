// Package testutil provides a scriptable stand-in for the Riot API.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockRiot serves scripted responses keyed by request path plus raw query.
// Each key holds a queue; the last response in a queue repeats once the
// others have been consumed. Unknown keys answer 404.
type MockRiot struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string][]MockResponse
	requests  []string

	LastToken string
}

// NewMockRiot starts a mock server.
func NewMockRiot() *MockRiot {
	m := &MockRiot{responses: make(map[string][]MockResponse)}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}

		m.mu.Lock()
		m.requests = append(m.requests, key)
		m.LastToken = r.Header.Get("X-Riot-Token")
		queue, ok := m.responses[key]
		var resp MockResponse
		if ok && len(queue) > 0 {
			resp = queue[0]
			if len(queue) > 1 {
				m.responses[key] = queue[1:]
			}
		}
		m.mu.Unlock()

		if !ok {
			http.Error(w, `{"status":{"message":"Data not found","status_code":404}}`, http.StatusNotFound)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp.Body))
	}))

	return m
}

// URL returns the mock server URL.
func (m *MockRiot) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockRiot) Close() {
	m.server.Close()
}

// Script queues responses for a path (with optional "?query").
func (m *MockRiot) Script(key string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = append(m.responses[key], responses...)
}

// JSON queues a 200 response whose body is v encoded as JSON.
func (m *MockRiot) JSON(key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.Script(key, MockResponse{StatusCode: http.StatusOK, Body: string(body)})
}

// Requests returns every request key received so far, in order.
func (m *MockRiot) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// Count returns how many requests hit keys starting with prefix.
func (m *MockRiot) Count(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}
