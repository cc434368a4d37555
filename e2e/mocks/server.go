// Package mocks provides an HTTP mock of the three analysis producers for E2E tests.
package mocks

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"tradelens/models"
)

// MockServer serves POST /{producer}/analyze for every producer name.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	results map[models.ProducerName]models.AnalysisResult
	faults  map[models.ProducerName]ProducerFault
	delays  map[models.ProducerName]time.Duration

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Producer      models.ProducerName
	Authorization string
	RequestID     string
	Body          ProducerRequest
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		results:    make(map[models.ProducerName]models.AnalysisResult),
		faults:     make(map[models.ProducerName]ProducerFault),
		delays:     make(map[models.ProducerName]time.Duration),
		requestLog: make([]RequestLog, 0),
	}
	for _, p := range models.Producers {
		m.results[p] = DefaultResult(p)
	}
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// ProducerURL returns the base URL a ProducerClient for producer should use.
func (m *MockServer) ProducerURL(producer models.ProducerName) string {
	return m.server.URL + "/" + string(producer)
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/analyze")
	producer := models.ProducerName(name)
	if !ok || r.Method != http.MethodPost || !isProducer(producer) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var body ProducerRequest
	data, _ := io.ReadAll(r.Body)
	json.Unmarshal(data, &body)

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Producer:      producer,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		Body:          body,
	})
	delay := m.delays[producer]
	fault, faulty := m.faults[producer]
	result := m.results[producer]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if faulty {
		var env errorEnvelope
		env.Error.Code = fault.Code
		env.Error.Message = fault.Message
		w.WriteHeader(fault.Status)
		json.NewEncoder(w).Encode(env)
		return
	}
	json.NewEncoder(w).Encode(result)
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// Calls returns how many requests producer has received.
func (m *MockServer) Calls(producer models.ProducerName) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requestLog {
		if r.Producer == producer {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetResult configures the result a producer answers with.
func (m *MockServer) SetResult(producer models.ProducerName, result models.AnalysisResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[producer] = result
}

// SetScore overrides only the score of a producer's result.
func (m *MockServer) SetScore(producer models.ProducerName, score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.results[producer]
	r.Score = score
	m.results[producer] = r
}

// SetFault makes a producer fail with the given status and error code.
func (m *MockServer) SetFault(producer models.ProducerName, fault ProducerFault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[producer] = fault
}

// ClearFault makes a producer answer normally again.
func (m *MockServer) ClearFault(producer models.ProducerName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.faults, producer)
}

// SetDelay makes a producer wait before answering.
func (m *MockServer) SetDelay(producer models.ProducerName, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[producer] = d
}

func isProducer(name models.ProducerName) bool {
	for _, p := range models.Producers {
		if p == name {
			return true
		}
	}
	return false
}
