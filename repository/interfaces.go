package repository

import (
	"context"

	"tradelens/models"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// User profiles
	GetEncryptedCredential(ctx context.Context, userID string) ([]byte, error)
	SetEncryptedCredential(ctx context.Context, userID string, blob []byte) error
	DeleteEncryptedCredential(ctx context.Context, userID string) error

	// Producer runs
	RecordProducerRun(ctx context.Context, run *models.ProducerRun) error
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
