package repository

import (
	"context"
	"time"

	"github.com/utafrali/auth-service/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// RefreshTokenRepository defines the interface for refresh token persistence.
// Implementations keep at most one live refresh token per user.
type RefreshTokenRepository interface {
	// Save stores the refresh token hash for the user, replacing any
	// previously stored token for that user.
	Save(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// DeleteByHash removes a refresh token by its hash. Deleting an absent
	// token is not an error.
	DeleteByHash(ctx context.Context, tokenHash string) error
}
