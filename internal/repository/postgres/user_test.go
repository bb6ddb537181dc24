package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/auth-service/internal/domain"
	"github.com/utafrali/auth-service/pkg/database"
	apperrors "github.com/utafrali/auth-service/pkg/errors"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewUserRepository(mock)
	return repo, mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           "u-1234",
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash-abc",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userColumns() []string {
	return []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns()).AddRow(
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), u)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs(u.Email).
		WillReturnRows(userRow(u))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE email =").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	u := sampleUser()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs(u.ID).
		WillReturnRows(userRow(u))

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_QueryError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id =").
		WithArgs("u-1234").
		WillReturnError(fmt.Errorf("connection refused"))

	got, err := repo.GetByID(context.Background(), "u-1234")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
