package repository

import (
	"context"
	"errors"
	"fmt"

	"tradelens/observability"

	"github.com/jackc/pgx/v5"
)

const profilesTable = "user_profiles"

// GetEncryptedCredential returns the stored credential blob for a user,
// or nil when the user has none
func (r *Repository) GetEncryptedCredential(ctx context.Context, userID string) ([]byte, error) {
	if err := r.checkDB(); err != nil {
		return nil, err
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("select", profilesTable)

	var blob []byte
	err := r.db.QueryRow(ctx, `
		SELECT credential_encrypted
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(&blob)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("select", profilesTable)
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return blob, nil
}

// SetEncryptedCredential stores or replaces the credential blob for a user
func (r *Repository) SetEncryptedCredential(ctx context.Context, userID string, blob []byte) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	metrics := observability.GetMetrics()
	timer := metrics.NewTimer()
	defer timer.ObserveDB("upsert", profilesTable)

	_, err := r.db.Exec(ctx, `
		INSERT INTO user_profiles (user_id, credential_encrypted, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			credential_encrypted = EXCLUDED.credential_encrypted,
			updated_at = NOW()
	`, userID, blob)

	if err != nil {
		metrics.RecordDBError("upsert", profilesTable)
		return fmt.Errorf("failed to store credential: %w", err)
	}

	return nil
}

// DeleteEncryptedCredential removes a user's stored credential
func (r *Repository) DeleteEncryptedCredential(ctx context.Context, userID string) error {
	if err := r.checkDB(); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
		UPDATE user_profiles
		SET credential_encrypted = NULL, updated_at = NOW()
		WHERE user_id = $1
	`, userID)

	if err != nil {
		observability.GetMetrics().RecordDBError("update", profilesTable)
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return nil
}
