package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tradelens/models"
)

// Prober checks whether a credential is still accepted by its provider
type Prober interface {
	Probe(ctx context.Context, key models.APIKey) error
}

// ErrCredentialRejected is returned by a Prober when the provider refuses the key
var ErrCredentialRejected = errors.New("credential rejected by provider")

// HTTPProber probes a provider endpoint with the key as a bearer token
type HTTPProber struct {
	url    string
	client *http.Client
}

// NewHTTPProber creates a new HTTPProber
func NewHTTPProber(url string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Probe sends a GET to the provider endpoint
func (p *HTTPProber) Probe(ctx context.Context, key models.APIKey) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key.Reveal())

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrCredentialRejected
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}
