// Package e2e provides end-to-end testing infrastructure for tradelens.
// The harness runs the real HTTP router, credential resolver, adapters,
// orchestrator and synthesizer against mock producers over HTTP.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tradelens/cache"
	"tradelens/config"
	"tradelens/e2e/mocks"
	"tradelens/internal/api"
	"tradelens/internal/app"
	"tradelens/internal/credentials"
	"tradelens/models"
	"tradelens/observability"
)

// TestUser is the user whose credential Setup seals into the profile store.
const TestUser = "user-e2e"

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	store      *ProfileStore
	runs       *RunLog
	app        *app.App
	cache      *cache.MemoryCache
	router     http.Handler
	config     *config.Config
	credential string
}

// NewTestHarness creates a new test harness.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

	return &TestHarness{
		t:          t,
		ctx:        ctx,
		cancel:     cancel,
		store:      NewProfileStore(),
		runs:       &RunLog{},
		credential: "sk-" + strings.Repeat("e2e0", 12),
	}
}

// Setup starts the mock producers and wires the application against them.
// mutate, when given, adjusts the configuration before wiring.
func (h *TestHarness) Setup(mutate ...func(*config.Config)) error {
	observability.InitLogger(false)
	observability.InitMetrics()

	h.mockServer = mocks.NewMockServer()
	h.config = h.createTestConfig()
	for _, fn := range mutate {
		fn(h.config)
	}

	if err := h.SealCredential(TestUser, h.credential); err != nil {
		return err
	}

	var err error
	h.app, h.cache, err = app.Bootstrap(h.config, app.Infra{
		Store:    h.store,
		Recorder: h.runs,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap application: %w", err)
	}

	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)
	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.app != nil {
		h.app.Shutdown(context.Background())
	}
	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock producers for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// Store returns the in-memory profile store.
func (h *TestHarness) Store() *ProfileStore {
	return h.store
}

// Runs returns the recorded producer runs.
func (h *TestHarness) Runs() *RunLog {
	return h.runs
}

// Cache returns the result cache the application uses.
func (h *TestHarness) Cache() *cache.MemoryCache {
	return h.cache
}

// Credential returns TestUser's plaintext credential.
func (h *TestHarness) Credential() string {
	return h.credential
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// SealCredential encrypts key and stores it for userID.
func (h *TestHarness) SealCredential(userID, key string) error {
	crypto, err := credentials.NewCrypto(h.config.Credentials.Secret)
	if err != nil {
		return err
	}
	blob, err := crypto.Encrypt([]byte(key))
	if err != nil {
		return err
	}
	h.store.Set(userID, blob)
	return nil
}

// DoRequest performs an HTTP request as userID and returns the response.
func (h *TestHarness) DoRequest(method, path, body, userID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set(api.UserIDHeader, userID)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// Analyze posts an analysis request as TestUser.
func (h *TestHarness) Analyze(body string) *httptest.ResponseRecorder {
	return h.DoRequest(http.MethodPost, "/api/analyze", body, TestUser)
}

func (h *TestHarness) createTestConfig() *config.Config {
	cfg := config.NewTestConfig()
	cfg.Producers.Fundamental.URL = h.mockServer.ProducerURL(models.ProducerFundamental)
	cfg.Producers.Technical.URL = h.mockServer.ProducerURL(models.ProducerTechnical)
	cfg.Producers.SentimentEco.URL = h.mockServer.ProducerURL(models.ProducerSentimentEco)
	cfg.Producers.RecordRuns = true
	return cfg
}

// ProfileStore is an in-memory credentials.ProfileStore.
type ProfileStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	reads int
}

// NewProfileStore creates an empty ProfileStore.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{blobs: make(map[string][]byte)}
}

// GetEncryptedCredential implements credentials.ProfileStore.
func (s *ProfileStore) GetEncryptedCredential(ctx context.Context, userID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.blobs[userID], nil
}

// Set stores a blob for userID.
func (s *ProfileStore) Set(userID string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[userID] = blob
}

// Reads returns how many times the store was read.
func (s *ProfileStore) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// RunLog is an in-memory agents.RunRecorder.
type RunLog struct {
	mu   sync.Mutex
	runs []models.ProducerRun
}

// RecordProducerRun implements agents.RunRecorder.
func (l *RunLog) RecordProducerRun(ctx context.Context, run *models.ProducerRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, *run)
	return nil
}

// All returns a copy of every recorded run.
func (l *RunLog) All() []models.ProducerRun {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ProducerRun{}, l.runs...)
}
