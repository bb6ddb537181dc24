// Package redis provides a Redis-backed refresh token repository. It is an
// alternative to the PostgreSQL store for deployments that keep session state
// out of the primary database.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/auth-service/internal/domain"
	apperrors "github.com/utafrali/auth-service/pkg/errors"
)

const (
	tokenKeyPrefix = "refresh:token:"
	userKeyPrefix  = "refresh:user:"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository on top
// of Redis. Two keys are kept per session: token_hash -> record (for lookup
// by token) and user_id -> token_hash (to replace the previous token on the
// next Save). Both carry the refresh TTL so expired sessions evict themselves.
type RefreshTokenRepository struct {
	client *redis.Client
}

// NewRefreshTokenRepository creates a new Redis-backed refresh token repository.
func NewRefreshTokenRepository(client *redis.Client) *RefreshTokenRepository {
	return &RefreshTokenRepository{client: client}
}

type record struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Save stores the refresh token hash for the user, removing any previously
// stored token for that user.
func (r *RefreshTokenRepository) Save(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	rec := record{
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal refresh token record: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	// Look up the user's previous token so it stops validating immediately.
	prevHash, err := r.client.Get(ctx, userKeyPrefix+userID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get previous refresh token: %w", err)
	}

	pipe := r.client.TxPipeline()
	if prevHash != "" && prevHash != tokenHash {
		pipe.Del(ctx, tokenKeyPrefix+prevHash)
	}
	pipe.Set(ctx, tokenKeyPrefix+tokenHash, data, ttl)
	pipe.Set(ctx, userKeyPrefix+userID, tokenHash, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}

	return nil
}

// GetByHash retrieves a refresh token record by its hash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	data, err := r.client.Get(ctx, tokenKeyPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal refresh token record: %w", err)
	}

	return &domain.RefreshToken{
		UserID:    rec.UserID,
		TokenHash: tokenHash,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// DeleteByHash removes a refresh token by its hash. Deleting an absent token
// is not an error.
func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	data, err := r.client.Get(ctx, tokenKeyPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("get refresh token for delete: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("unmarshal refresh token record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, tokenKeyPrefix+tokenHash)
	pipe.Del(ctx, userKeyPrefix+rec.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}
