// Package agents wraps the remote analysis producers: a cached, retrying
// Adapter per producer and the Orchestrator that fans out to all three.
package agents

import (
	"context"

	"tradelens/models"
	"tradelens/services"
)

// Producer is a remote analysis engine returning an AnalysisResult for a request
type Producer interface {
	Name() models.ProducerName
	Analyze(ctx context.Context, req models.AnalysisRequest, key models.APIKey) (*models.AnalysisResult, error)
}

var _ Producer = (*services.ProducerClient)(nil)
