package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/ukarch-cms/internal/models"
)

func setupSessionMock(t *testing.T) (*SQLiteSessionRepository, sqlmock.Sqlmock, func()) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return NewSQLiteSessionRepository(conn), mock, func() { conn.Close() }
}

func TestSessionCreate(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	now := time.Unix(1_700_000_000, 0)
	s := &models.Session{ID: "sid", UserID: 1, Username: "admin", Role: models.RoleAdmin,
		CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sessions (id, user_id, username, role, created_at, expires_at)`)).
		WithArgs("sid", int64(1), "admin", "admin", now.Unix(), now.Add(24*time.Hour).Unix()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGet(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	now := time.Unix(1_700_000_000, 0)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE id = ? AND expires_at > ?`)).
		WithArgs("sid", now.Unix()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "username", "role", "created_at", "expires_at"}).
			AddRow("sid", 1, "admin", "admin", now.Unix(), now.Add(time.Hour).Unix()))

	s, err := repo.Get(context.Background(), "sid", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.UserID)
	assert.Equal(t, models.RoleAdmin, s.Role)
	assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt.Unix())
}

func TestSessionGet_Expired(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions WHERE id = ? AND expires_at > ?`)).
		WithArgs("sid", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "username", "role", "created_at", "expires_at"}))

	_, err := repo.Get(context.Background(), "sid", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionDelete(t *testing.T) {
	repo, mock, cleanup := setupSessionMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = ?`)).
		WithArgs("sid").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE id = ?`)).
		WithArgs("sid").
		WillReturnError(errors.New("disk I/O error"))

	assert.NoError(t, repo.Delete(context.Background(), "sid"))
	assert.Error(t, repo.Delete(context.Background(), "sid"))
}
