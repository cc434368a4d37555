package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Machine-readable producer error codes
const (
	CodeRateLimited       = "RATE_LIMITED"
	CodeTimeout           = "TIMEOUT"
	CodeUnavailable       = "UNAVAILABLE"
	CodeUpstream          = "UPSTREAM_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
	CodeCircuitOpen       = "CIRCUIT_OPEN"
	CodeNetwork           = "NETWORK_ERROR"
)

// ErrServiceUnavailable is returned when a circuit breaker rejects a call
var ErrServiceUnavailable = errors.New("service unavailable")

// APIError is a failed producer call with a machine-readable code
type APIError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s returned %d %s: %s", e.Service, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Service, e.Code, e.Message)
}

// Retryable reports whether the failure is transient
func (e *APIError) Retryable() bool {
	switch e.Code {
	case CodeRateLimited, CodeTimeout, CodeUnavailable, CodeUpstream, CodeNetwork:
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// clientFault reports whether the producer rejected the request itself.
// These do not count against the producer's circuit breaker.
func (e *APIError) clientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// codeForStatus maps an HTTP status to a code when the body carries none
func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeUnauthorized
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return CodeTimeout
	case status == http.StatusServiceUnavailable:
		return CodeUnavailable
	case status >= 500:
		return CodeUpstream
	default:
		return CodeInvalidRequest
	}
}

// IsRetryable classifies an error as transient (rate limit, 5xx, network
// timeout) or permanent. Caller cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrServiceUnavailable) {
		return false
	}

	var retryable interface{ Retryable() bool }
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// ErrorCode returns the machine-readable code carried by err
func ErrorCode(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, ErrServiceUnavailable):
		return CodeCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeNetwork
	}
	return CodeUpstream
}

// countsAsBreakerSuccess keeps client-side rejections from tripping a breaker
func countsAsBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.clientFault()
}
