package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/ukarch-cms/internal/models"
)

// SQLiteSessionRepository stores server-side sessions.
type SQLiteSessionRepository struct {
	DB *sql.DB
}

// NewSQLiteSessionRepository creates a new SQLiteSessionRepository.
func NewSQLiteSessionRepository(conn *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{DB: conn}
}

// Create inserts s.
func (r *SQLiteSessionRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, username, role, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Username, string(s.Role), s.CreatedAt.Unix(), s.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

// Get returns the session with id if it has not expired at now.
func (r *SQLiteSessionRepository) Get(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	var (
		s                  models.Session
		role               string
		created, expiresAt int64
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, username, role, created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?`,
		id, now.Unix()).Scan(&s.ID, &s.UserID, &s.Username, &role, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	s.Role = models.Role(role)
	s.CreatedAt = time.Unix(created, 0)
	s.ExpiresAt = time.Unix(expiresAt, 0)
	return &s, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
