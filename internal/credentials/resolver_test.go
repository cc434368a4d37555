package credentials

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tradelens/models"
	"tradelens/observability"
)

const testKey = "sk-abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJKL"

type fakeStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
	calls int32
}

func (f *fakeStore) GetEncryptedCredential(_ context.Context, userID string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blobs[userID], nil
}

type fakeProber struct {
	err   error
	calls int32
}

func (f *fakeProber) Probe(_ context.Context, _ models.APIKey) error {
	atomic.AddInt32(&f.calls, 1)
	return f.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestResolver(t *testing.T, store ProfileStore, opts ...ResolverOption) (*Resolver, *Crypto) {
	t.Helper()
	crypto, err := NewCrypto("test-credential-secret")
	if err != nil {
		t.Fatalf("NewCrypto() error = %v", err)
	}
	format, err := NewFormat("sk-", 48)
	if err != nil {
		t.Fatalf("NewFormat() error = %v", err)
	}
	return NewResolver(store, crypto, format, 5*time.Minute, opts...), crypto
}

func encryptFor(t *testing.T, crypto *Crypto, plaintext string) []byte {
	t.Helper()
	blob, err := crypto.Encrypt([]byte(plaintext))
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	return blob
}

func TestResolve_Success(t *testing.T) {
	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, crypto := newTestResolver(t, store)
	store.blobs["user-1"] = encryptFor(t, crypto, testKey)

	key, err := resolver.Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if key.Reveal() != testKey {
		t.Errorf("Resolve() = %q, want the stored key", key.Reveal())
	}
}

func TestResolve_MissingCredential(t *testing.T) {
	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, _ := newTestResolver(t, store)

	_, err := resolver.Resolve(context.Background(), "user-1")
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Resolve() error = %v, want ErrMissingCredential", err)
	}

	_, err = resolver.Resolve(context.Background(), "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Resolve(\"\") error = %v, want ErrMissingCredential", err)
	}
}

func TestResolve_DecryptionFailure(t *testing.T) {
	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, _ := newTestResolver(t, store)

	other, _ := NewCrypto("another-secret")
	store.blobs["user-1"] = encryptFor(t, other, testKey)
	store.blobs["user-2"] = []byte("garbage")

	for _, user := range []string{"user-1", "user-2"} {
		_, err := resolver.Resolve(context.Background(), user)
		if !errors.Is(err, ErrDecryptionFailure) {
			t.Errorf("Resolve(%s) error = %v, want ErrDecryptionFailure", user, err)
		}
	}
}

func TestResolve_InvalidFormat(t *testing.T) {
	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, crypto := newTestResolver(t, store)
	store.blobs["user-1"] = encryptFor(t, crypto, "not-a-real-key")

	_, err := resolver.Resolve(context.Background(), "user-1")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Resolve() error = %v, want ErrInvalidFormat", err)
	}
	if resolver.Len() != 0 {
		t.Error("invalid credentials must not be cached")
	}
}

func TestResolve_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	resolver, _ := newTestResolver(t, store)

	_, err := resolver.Resolve(context.Background(), "user-1")
	if err == nil {
		t.Fatal("Resolve() should fail when the store fails")
	}
	if errors.Is(err, ErrMissingCredential) || errors.Is(err, ErrDecryptionFailure) {
		t.Errorf("store errors should not map to credential errors, got %v", err)
	}
}

func TestResolve_CachesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, crypto := newTestResolver(t, store, WithClock(clock.Now))
	store.blobs["user-1"] = encryptFor(t, crypto, testKey)

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve(context.Background(), "user-1"); err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
	}
	if got := atomic.LoadInt32(&store.calls); got != 1 {
		t.Errorf("store calls = %d, want 1", got)
	}

	clock.Advance(5 * time.Minute)
	if _, err := resolver.Resolve(context.Background(), "user-1"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := atomic.LoadInt32(&store.calls); got != 2 {
		t.Errorf("store calls after TTL = %d, want 2", got)
	}
}

func TestResolve_Invalidate(t *testing.T) {
	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, crypto := newTestResolver(t, store)
	store.blobs["user-1"] = encryptFor(t, crypto, testKey)

	resolver.Resolve(context.Background(), "user-1")
	resolver.Invalidate("user-1")
	resolver.Resolve(context.Background(), "user-1")

	if got := atomic.LoadInt32(&store.calls); got != 2 {
		t.Errorf("store calls = %d, want 2", got)
	}
}

func TestResolve_PrunesExpiredRecords(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, crypto := newTestResolver(t, store, WithClock(clock.Now))
	store.blobs["user-1"] = encryptFor(t, crypto, testKey)
	store.blobs["user-2"] = encryptFor(t, crypto, testKey)

	resolver.Resolve(context.Background(), "user-1")
	clock.Advance(10 * time.Minute)
	resolver.Resolve(context.Background(), "user-2")

	if got := resolver.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestResolve_ProbeFailureDoesNotBlock(t *testing.T) {
	store := &fakeStore{blobs: map[string][]byte{}}
	prober := &fakeProber{err: ErrCredentialRejected}
	resolver, crypto := newTestResolver(t, store, WithProber(prober, time.Second))
	store.blobs["user-1"] = encryptFor(t, crypto, testKey)

	key, err := resolver.Resolve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v, probe failures must not block", err)
	}
	if key.Reveal() != testKey {
		t.Error("Resolve() returned the wrong key")
	}

	// Cached resolutions skip the probe
	resolver.Resolve(context.Background(), "user-1")
	if got := atomic.LoadInt32(&prober.calls); got != 1 {
		t.Errorf("probe calls = %d, want 1", got)
	}
}

func TestResolve_NeverLogsRawKey(t *testing.T) {
	var buf bytes.Buffer
	original := observability.Logger
	observability.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	defer func() { observability.Logger = original }()

	store := &fakeStore{blobs: map[string][]byte{}}
	resolver, crypto := newTestResolver(t, store, WithProber(&fakeProber{err: errors.New("down")}, time.Second))
	store.blobs["user-1"] = encryptFor(t, crypto, testKey)

	if _, err := resolver.Resolve(context.Background(), "user-1"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if buf.Len() == 0 {
		t.Fatal("expected a probe warning to be logged")
	}
	if strings.Contains(buf.String(), testKey) {
		t.Error("log output contains the raw credential")
	}
}

func TestHTTPProber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHTTPProber(server.URL, time.Second)

	if err := prober.Probe(context.Background(), models.APIKey(testKey)); err != nil {
		t.Errorf("Probe() error = %v", err)
	}
	if err := prober.Probe(context.Background(), models.APIKey("sk-wrong")); !errors.Is(err, ErrCredentialRejected) {
		t.Errorf("Probe() error = %v, want ErrCredentialRejected", err)
	}
}

func TestHTTPProber_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewHTTPProber(server.URL, time.Second).Probe(context.Background(), models.APIKey(testKey))
	if err == nil || errors.Is(err, ErrCredentialRejected) {
		t.Errorf("Probe() error = %v, want an unexpected status error", err)
	}
}
