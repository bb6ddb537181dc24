package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/auth-service/internal/auth"
	"github.com/utafrali/auth-service/internal/domain"
	"github.com/utafrali/auth-service/internal/event"
	"github.com/utafrali/auth-service/internal/repository"
	apperrors "github.com/utafrali/auth-service/pkg/errors"
)

// AuthService implements the business logic for the four auth operations:
// register, login, logout, and refresh. All session state lives in the
// refresh token repository, which keeps a single live token per user.
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	tokens           *auth.TokenManager
	passwords        *auth.PasswordHasher
	producer         *event.Producer
	logger           *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	tokens *auth.TokenManager,
	passwords *auth.PasswordHasher,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		passwords:        passwords,
		producer:         producer,
		logger:           logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a new user account, hashes the password, and returns the
// public user together with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.PublicUser, *domain.TokenPair, error) {
	if input.Name == "" {
		return nil, nil, apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	// Duplicate emails are reported with the offending address so the caller
	// can show actionable signup feedback.
	if _, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil {
		return nil, nil, apperrors.AlreadyExists("user", "email", input.Email)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing user: %w", err)
	}

	hashedPassword, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index on email catches the race where two registrations for
	// the same address pass the lookup above concurrently.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pub := user.Public()
	tokens, err := s.issueTokens(ctx, pub)
	if err != nil {
		return nil, nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, pub); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", pub.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", pub.ID),
		slog.String("email", pub.Email),
	)

	return &pub, tokens, nil
}

// Login authenticates a user with email and password, returning the public
// user and a fresh token pair. A successful login supersedes any refresh
// token issued to the user earlier.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.PublicUser, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("user not found")
	}

	if !s.passwords.Compare(input.Password, user.PasswordHash) {
		return nil, nil, apperrors.Unauthorized("incorrect password")
	}

	pub := user.Public()
	tokens, err := s.issueTokens(ctx, pub)
	if err != nil {
		return nil, nil, err
	}

	if err := s.producer.PublishUserLoggedIn(ctx, pub); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.String("user_id", pub.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", pub.ID),
		slog.String("email", pub.Email),
	)

	return &pub, tokens, nil
}

// Logout revokes the given refresh token. It performs no token validation:
// revoking an absent, expired, or already revoked token is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.refreshTokenRepo.DeleteByHash(ctx, hashToken(refreshToken)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "refresh token revoked")
	return nil
}

// Refresh validates a refresh token and rotates it, returning the public user
// and a fresh token pair. Both the signature check and the store lookup must
// succeed: a cryptographically valid token that has been revoked by logout or
// superseded by a newer login is rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.PublicUser, *domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, nil, apperrors.Unauthorized("refresh token required")
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	stored, err := s.refreshTokenRepo.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, nil, apperrors.Unauthorized("refresh token revoked")
	}
	if time.Now().UTC().After(stored.ExpiresAt) {
		return nil, nil, apperrors.Unauthorized("refresh token expired")
	}

	// Re-fetch the user by id rather than trusting the claims payload, so
	// name or email changes since issuance are reflected in the new tokens.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("user not found")
	}

	pub := user.Public()
	tokens, err := s.issueTokens(ctx, pub)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", pub.ID),
	)

	return &pub, tokens, nil
}

// Me returns the public user for the given id. It backs the authenticated
// profile endpoint.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	pub := user.Public()
	return &pub, nil
}

// issueTokens mints an access/refresh token pair and upserts the refresh
// token hash, replacing any earlier session for the user.
func (s *AuthService) issueTokens(ctx context.Context, user domain.PublicUser) (*domain.TokenPair, error) {
	tokens, err := s.tokens.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.tokens.RefreshExpiry())
	if err := s.refreshTokenRepo.Save(ctx, user.ID, hashToken(tokens.RefreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return tokens, nil
}

// hashToken returns the SHA256 hex digest of the given token string. Only the
// digest is persisted, never the token itself.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
