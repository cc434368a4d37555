// Package credentials resolves a user's stored API credential into a
// usable key: lookup, authenticated decryption, format validation and a
// short-lived in-memory record cache.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradelens/models"
	"tradelens/observability"
)

var (
	// ErrMissingCredential means the user has no stored credential
	ErrMissingCredential = errors.New("no credential stored for user")
	// ErrDecryptionFailure means the stored blob could not be authenticated
	ErrDecryptionFailure = errors.New("credential could not be decrypted")
	// ErrInvalidFormat means the decrypted value does not look like a credential
	ErrInvalidFormat = errors.New("credential has an invalid format")
)

// ProfileStore is the profile store the resolver reads from.
// GetEncryptedCredential returns nil, nil when nothing is stored.
type ProfileStore interface {
	GetEncryptedCredential(ctx context.Context, userID string) ([]byte, error)
}

// record is a decrypted credential held in memory only
type record struct {
	userID   string
	key      models.APIKey
	cachedAt time.Time
}

// Resolver turns a user id into a decrypted, validated credential
type Resolver struct {
	store        ProfileStore
	crypto       *Crypto
	format       *Format
	ttl          time.Duration
	prober       Prober
	probeTimeout time.Duration

	mu      sync.RWMutex
	records map[string]record
	now     func() time.Time
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithProber enables best-effort liveness probing of freshly decrypted keys
func WithProber(p Prober, timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.prober = p
		r.probeTimeout = timeout
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a new Resolver
func NewResolver(store ProfileStore, crypto *Crypto, format *Format, ttl time.Duration, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:   store,
		crypto:  crypto,
		format:  format,
		ttl:     ttl,
		records: make(map[string]record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the user's decrypted credential
func (r *Resolver) Resolve(ctx context.Context, userID string) (models.APIKey, error) {
	metrics := observability.GetMetrics()

	if userID == "" {
		metrics.RecordCredentialResolution("missing")
		return "", ErrMissingCredential
	}

	if key, ok := r.cached(userID); ok {
		metrics.RecordCredentialResolution("cache_hit")
		return key, nil
	}

	blob, err := r.store.GetEncryptedCredential(ctx, userID)
	if err != nil {
		metrics.RecordCredentialResolution("store_error")
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if len(blob) == 0 {
		metrics.RecordCredentialResolution("missing")
		return "", ErrMissingCredential
	}

	plaintext, err := r.crypto.Decrypt(blob)
	if err != nil {
		metrics.RecordCredentialResolution("decryption_failure")
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}

	key := models.APIKey(plaintext)
	if !r.format.Matches(key.Reveal()) {
		metrics.RecordCredentialResolution("invalid_format")
		return "", ErrInvalidFormat
	}

	r.probe(ctx, userID, key)
	r.remember(userID, key)
	metrics.RecordCredentialResolution("resolved")
	return key, nil
}

// Invalidate drops the cached record for a user, e.g. after a producer rejected it
func (r *Resolver) Invalidate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
}

// Len returns the number of cached records, expired or not
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Resolver) cached(userID string) (models.APIKey, bool) {
	r.mu.RLock()
	rec, ok := r.records[userID]
	r.mu.RUnlock()

	if !ok || r.now().Sub(rec.cachedAt) >= r.ttl {
		return "", false
	}
	return rec.key, true
}

func (r *Resolver) remember(userID string, key models.APIKey) {
	if r.ttl <= 0 {
		return
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if now.Sub(rec.cachedAt) >= r.ttl {
			delete(r.records, id)
		}
	}
	r.records[userID] = record{userID: userID, key: key, cachedAt: now}
}

func (r *Resolver) probe(ctx context.Context, userID string, key models.APIKey) {
	if r.prober == nil {
		return
	}

	probeCtx := ctx
	if r.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, r.probeTimeout)
		defer cancel()
	}

	if err := r.prober.Probe(probeCtx, key); err != nil {
		observability.Warn("credential liveness probe failed",
			"user_id", userID,
			"key", key,
			"error", err)
	}
}
