package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/auth-service/internal/domain"
	apperrors "github.com/utafrali/auth-service/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using
// PostgreSQL. The user_id primary key enforces the single-token-per-user
// invariant; Save relies on ON CONFLICT to replace the previous token.
type RefreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token repository.
func NewRefreshTokenRepository(db DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Save upserts the refresh token hash for the user.
func (r *RefreshTokenRepository) Save(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET token_hash = EXCLUDED.token_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at`

	_, err := r.db.Exec(ctx, query, userID, tokenHash, expiresAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	query := `
		SELECT user_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1`

	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash).Scan(
		&rt.UserID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &rt, nil
}

// DeleteByHash removes a refresh token by its hash. Deleting an absent token
// is not an error.
func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM refresh_tokens WHERE token_hash = $1`

	if _, err := r.db.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}
