package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/utafrali/auth-service/internal/domain"
)

// Claims represents the JWT claims for an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the JWT claims for a refresh token. It carries the
// same user projection as the access token but is signed with its own secret.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// User returns the user projection embedded in the claims.
func (c *Claims) User() domain.PublicUser {
	return domain.PublicUser{ID: c.UserID, Name: c.Name, Email: c.Email}
}

// User returns the user projection embedded in the claims.
func (c *RefreshClaims) User() domain.PublicUser {
	return domain.PublicUser{ID: c.UserID, Name: c.Name, Email: c.Email}
}

// TokenManager handles JWT token generation and validation. Access and
// refresh tokens are signed with disjoint secrets, so a token of one kind
// never validates as the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewTokenManager creates a token manager with the given secrets and expiry durations.
func NewTokenManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// RefreshExpiry returns the configured refresh-token lifetime.
func (m *TokenManager) RefreshExpiry() time.Duration {
	return m.refreshExpiry
}

// GeneratePair creates a signed access/refresh token pair carrying the given
// user projection. The tokens differ only in lifetime and signing secret.
func (m *TokenManager) GeneratePair(user domain.PublicUser) (*domain.TokenPair, error) {
	access, err := m.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := m.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// GenerateAccessToken creates a signed JWT access token for the user.
func (m *TokenManager) GenerateAccessToken(user domain.PublicUser) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessExpiry)),
			Issuer:    "auth-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signedToken, nil
}

// GenerateRefreshToken creates a signed JWT refresh token for the user.
func (m *TokenManager) GenerateRefreshToken(user domain.PublicUser) (string, error) {
	now := time.Now().UTC()
	claims := &RefreshClaims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique jti so every rotation yields a distinct token even
			// within the same second.
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshExpiry)),
			Issuer:    "auth-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return signedToken, nil
}

// ValidateAccessToken parses and validates an access token, returning the claims.
func (m *TokenManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.accessSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	return claims, nil
}

// ValidateRefreshToken parses and validates a refresh token, returning the claims.
func (m *TokenManager) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.refreshSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse refresh token: %w", err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid refresh token claims")
	}

	return claims, nil
}
