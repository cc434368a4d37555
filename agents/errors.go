package agents

import (
	"fmt"
	"strings"

	"tradelens/models"
	"tradelens/services"
)

// CodeCancelled marks a producer call abandoned because the caller went away
const CodeCancelled = "CANCELLED"

// ProducerError is a producer invocation that failed after retries
type ProducerError struct {
	Producer  models.ProducerName
	Code      string
	Retryable bool
	Attempts  int
	Err       error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("%s producer failed (%s): %v", e.Producer, e.Code, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}

// Unauthorized reports whether the producer rejected the credential
func (e *ProducerError) Unauthorized() bool {
	return e.Code == services.CodeUnauthorized
}

// ProducerFailure names a failed producer and why
type ProducerFailure struct {
	Producer models.ProducerName `json:"producer"`
	Code     string              `json:"code"`
	Message  string              `json:"message"`
}

// InsufficientResultsError is returned when too few producers succeeded to synthesize
type InsufficientResultsError struct {
	Succeeded int
	Required  int
	Failures  []ProducerFailure
	Errs      []*ProducerError
}

func (e *InsufficientResultsError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Producer, f.Code))
	}
	return fmt.Sprintf("insufficient results: %d of %d required producers succeeded (failed: %s)",
		e.Succeeded, e.Required, strings.Join(parts, ", "))
}

// Unauthorized reports whether any failure was a rejected credential
func (e *InsufficientResultsError) Unauthorized() bool {
	for _, pe := range e.Errs {
		if pe.Unauthorized() {
			return true
		}
	}
	return false
}

func failureOf(pe *ProducerError) ProducerFailure {
	return ProducerFailure{
		Producer: pe.Producer,
		Code:     pe.Code,
		Message:  pe.Err.Error(),
	}
}
