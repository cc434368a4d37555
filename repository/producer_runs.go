package repository

import (
	"context"
	"fmt"

	"tradelens/models"
	"tradelens/observability"
)

const producerRunsTable = "producer_runs"

// RecordProducerRun persists a finished producer run
func (r *Repository) RecordProducerRun(ctx context.Context, run *models.ProducerRun) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("insert", producerRunsTable)

	var timeframe, errorCode, errorMessage *string
	if run.Timeframe != "" {
		tf := string(run.Timeframe)
		timeframe = &tf
	}
	if run.ErrorCode != "" {
		errorCode = &run.ErrorCode
	}
	if run.ErrorMessage != "" {
		errorMessage = &run.ErrorMessage
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO producer_runs (id, producer, ticker, context, timeframe, status, attempts,
		                           score, error_code, error_message, duration_ms, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, run.ID, run.Producer, run.Ticker, run.Context, timeframe, run.Status, run.Attempts,
		run.Score, errorCode, errorMessage, run.DurationMs, run.StartedAt, run.CompletedAt)

	if err != nil {
		metrics.RecordDBError("insert", producerRunsTable)
		return fmt.Errorf("failed to record producer run: %w", err)
	}

	return nil
}
