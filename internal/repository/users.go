package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/ukarch-cms/internal/db"
	"github.com/atinyakov/ukarch-cms/internal/models"
)

const userColumns = `id, username, email, password_hash, COALESCE(role, 'user'), reset_token,
       CAST(reset_token_expires AS TEXT), CAST(last_login AS TEXT), CAST(created_at AS TEXT)`

// SQLiteUserRepository is the credential store.
type SQLiteUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository.
func NewSQLiteUserRepository(conn *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{DB: conn}
}

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		u                                   models.User
		role                                string
		token, expires, lastLogin, created sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role,
		&token, &expires, &lastLogin, &created); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if token.Valid && token.String != "" {
		tok := token.String
		u.ResetToken = &tok
		if t, ok := parseTimestamp(expires.String); ok {
			u.ResetTokenExpires = &t
		}
	}
	if t, ok := parseTimestamp(lastLogin.String); ok {
		u.LastLogin = &t
	}
	if t, ok := parseTimestamp(created.String); ok {
		u.CreatedAt = t
	}
	return &u, nil
}

func (r *SQLiteUserRepository) findOne(ctx context.Context, op, where string, args ...any) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return u, nil
}

// FindByLogin returns the user whose username or email equals identifier.
// An exact username match wins over an email match.
func (r *SQLiteUserRepository) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	return r.findOne(ctx, "find user by login",
		`username = ? OR email = ? ORDER BY username = ? DESC LIMIT 1`,
		identifier, identifier, identifier)
}

// FindByID returns the user with the given id.
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "find user by id", `id = ?`, id)
}

// FindByEmail returns the user with the given email.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "find user by email", `email = ?`, email)
}

// FindByResetToken returns the user holding token. The match is exact.
func (r *SQLiteUserRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, "find user by reset token", `reset_token = ?`, token)
}

// Count returns the number of users.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users failed: %w", err)
	}
	return n, nil
}

// Create inserts u and returns its id.
func (r *SQLiteUserRepository) Create(ctx context.Context, u *models.User) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, string(u.Role))
	if err != nil {
		if domainErr := uniqueViolation(err); domainErr != nil {
			return 0, domainErr
		}
		return 0, fmt.Errorf("create user failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user failed: %w", err)
	}
	return id, nil
}

// TouchLastLogin sets last_login to the current time.
func (r *SQLiteUserRepository) TouchLastLogin(ctx context.Context, id int64) error {
	if _, err := r.DB.ExecContext(ctx,
		`UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return fmt.Errorf("touch last login failed: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("update password failed: %w", err)
	}
	return expectOne(res, "update password")
}

// SetPasswordByUsername replaces the password hash of username.
func (r *SQLiteUserRepository) SetPasswordByUsername(ctx context.Context, username, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE username = ?`, hash, username)
	if err != nil {
		return fmt.Errorf("set password failed: %w", err)
	}
	return expectOne(res, "set password")
}

// SetResetToken stores token and its expiry in one statement, replacing any
// earlier token.
func (r *SQLiteUserRepository) SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_token_expires = ? WHERE id = ?`,
		token, expires.Unix(), id)
	if err != nil {
		return fmt.Errorf("set reset token failed: %w", err)
	}
	return expectOne(res, "set reset token")
}

// ClearResetToken removes token from the user if it is still the active one.
func (r *SQLiteUserRepository) ClearResetToken(ctx context.Context, id int64, token string) error {
	if _, err := r.DB.ExecContext(ctx,
		`UPDATE users SET reset_token = NULL, reset_token_expires = NULL WHERE id = ? AND reset_token = ?`,
		id, token); err != nil {
		return fmt.Errorf("clear reset token failed: %w", err)
	}
	return nil
}

// ConsumeResetToken sets the new hash and clears the token fields in the
// same statement. It reports false when the token was already replaced or used.
func (r *SQLiteUserRepository) ConsumeResetToken(ctx context.Context, id int64, token, hash string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expires = NULL WHERE id = ? AND reset_token = ?`,
		hash, id, token)
	if err != nil {
		return false, fmt.Errorf("consume reset token failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume reset token failed: %w", err)
	}
	return n == 1, nil
}

// IsUsernameTaken reports whether another user owns username.
func (r *SQLiteUserRepository) IsUsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = ? AND id != ?)`,
		username, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username failed: %w", err)
	}
	return exists, nil
}

// IsEmailTaken reports whether another user owns email.
func (r *SQLiteUserRepository) IsEmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND id != ?)`,
		email, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email failed: %w", err)
	}
	return exists, nil
}

// UpdateProfile changes username and email and renames the user's live
// sessions in one transaction.
func (r *SQLiteUserRepository) UpdateProfile(ctx context.Context, id int64, username, email string) error {
	return db.WithTx(ctx, r.DB, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET username = ?, email = ? WHERE id = ?`, username, email, id)
		if err != nil {
			if domainErr := uniqueViolation(err); domainErr != nil {
				return domainErr
			}
			return fmt.Errorf("update profile failed: %w", err)
		}
		if err := expectOne(res, "update profile"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET username = ? WHERE user_id = ?`, username, id); err != nil {
			return fmt.Errorf("update profile failed: %w", err)
		}
		return nil
	})
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
