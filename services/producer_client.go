package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"tradelens/models"
)

const maxResponseBytes = 1 << 20

// ProducerClient calls one remote analysis producer over HTTP/JSON.
// Each call is a single attempt; retries belong to the caller.
type ProducerClient struct {
	name       models.ProducerName
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breakers   *CircuitBreakerRegistry
}

// NewProducerClient creates a new ProducerClient. A non-positive
// requestsPerSecond disables rate limiting; a nil registry disables
// circuit breaking.
func NewProducerClient(name models.ProducerName, baseURL string, timeout time.Duration, requestsPerSecond int, breakers *CircuitBreakerRegistry) *ProducerClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
	return &ProducerClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		breakers:   breakers,
	}
}

// Name returns the producer this client talks to
func (c *ProducerClient) Name() models.ProducerName {
	return c.name
}

// producerRequest is the wire request body
type producerRequest struct {
	Ticker    string                 `json:"ticker"`
	Context   models.AnalysisContext `json:"context"`
	Timeframe models.Timeframe       `json:"trading_timeframe,omitempty"`
}

// errorEnvelope is the wire error body
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze asks the producer for an analysis of req
func (c *ProducerClient) Analyze(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	if c.breakers == nil {
		return c.do(ctx, req, key)
	}
	return WithCircuitBreaker(ctx, c.breakers, BreakerName(c.name), func() (*models.AnalysisResult, error) {
		return c.do(ctx, req, key)
	})
}

func (c *ProducerClient) do(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error) {
	body, err := json.Marshal(producerRequest{
		Ticker:    req.Ticker,
		Context:   req.Context,
		Timeframe: req.Timeframe,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+key.Reveal())
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", c.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp.StatusCode, data)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &APIError{
			Service: string(c.name),
			Code:    CodeMalformedResponse,
			Message: err.Error(),
		}
	}
	if result.Producer == "" {
		result.Producer = c.name
	}

	return &result, nil
}

func (c *ProducerClient) decodeError(status int, data []byte) error {
	apiErr := &APIError{
		Service:    string(c.name),
		StatusCode: status,
		Code:       codeForStatus(status),
		Message:    http.StatusText(status),
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
		}
		if envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
	}
	return apiErr
}
