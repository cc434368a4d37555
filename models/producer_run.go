package models

import (
	"time"

	"github.com/google/uuid"
)

// ProducerRun is an audit record of one live producer invocation.
// Cache hits do not create runs.
type ProducerRun struct {
	ID           uuid.UUID         `json:"id"`
	Producer     ProducerName      `json:"producer"`
	Ticker       string            `json:"ticker"`
	Context      AnalysisContext   `json:"context"`
	Timeframe    Timeframe         `json:"trading_timeframe,omitempty"`
	Status       ProducerRunStatus `json:"status"`
	Attempts     int               `json:"attempts"`
	Score        *int              `json:"score,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	DurationMs   int               `json:"duration_ms"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

type ProducerRunStatus string

const (
	ProducerRunStatusRunning   ProducerRunStatus = "running"
	ProducerRunStatusCompleted ProducerRunStatus = "completed"
	ProducerRunStatusFailed    ProducerRunStatus = "failed"
)

func NewProducerRun(producer ProducerName, req AnalysisRequest) *ProducerRun {
	return &ProducerRun{
		ID:        uuid.New(),
		Producer:  producer,
		Ticker:    req.Ticker,
		Context:   req.Context,
		Timeframe: req.Timeframe,
		Status:    ProducerRunStatusRunning,
		StartedAt: time.Now(),
	}
}

func (r *ProducerRun) Complete(result *AnalysisResult, attempts int) {
	now := time.Now()
	r.CompletedAt = &now
	r.Status = ProducerRunStatusCompleted
	r.Attempts = attempts
	if result != nil {
		score := result.Score
		r.Score = &score
	}
	r.DurationMs = int(now.Sub(r.StartedAt).Milliseconds())
}

func (r *ProducerRun) Fail(code string, err error, attempts int) {
	now := time.Now()
	r.CompletedAt = &now
	r.Status = ProducerRunStatusFailed
	r.Attempts = attempts
	r.ErrorCode = code
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.DurationMs = int(now.Sub(r.StartedAt).Milliseconds())
}
