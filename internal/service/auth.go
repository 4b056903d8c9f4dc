// Package service implements session authentication, the password reset
// flow, the settings store and the media upload pipeline on top of the
// repository and storage layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/models"
	"github.com/atinyakov/ukarch-cms/internal/repository"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// DefaultAdminUsername is the account created on first boot.
const DefaultAdminUsername = "admin"

// UserRepository defines the credential store operations used by the services.
type UserRepository interface {
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, u *models.User) (int64, error)
	TouchLastLogin(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetPasswordByUsername(ctx context.Context, username, hash string) error
	SetResetToken(ctx context.Context, id int64, token string, expires time.Time) error
	ClearResetToken(ctx context.Context, id int64, token string) error
	ConsumeResetToken(ctx context.Context, id int64, token, hash string) (bool, error)
	IsUsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	IsEmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, username, email string) error
}

// SessionRepository stores server-side sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// TokenSigner turns session ids into cookie values and back.
type TokenSigner interface {
	Sign(sessionID string, issuedAt, expiresAt time.Time) (string, error)
	Parse(value string) (string, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	// Token is the signed cookie value.
	Token     string
	ExpiresAt time.Time
	User      models.PublicUser
}

// AuthService implements the session authenticator.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository
	signer   TokenSigner
	ttl      time.Duration
	cost     int
	now      func() time.Time
	log      *zap.Logger

	// dummyHash is compared against when the identifier matches no user so
	// both failure paths cost one bcrypt verification.
	dummyHash []byte
}

// NewAuthService constructs an AuthService. cost below bcrypt.DefaultCost is raised to it.
func NewAuthService(users UserRepository, sessions SessionRepository, signer TokenSigner,
	ttl time.Duration, cost int, log *zap.Logger) (*AuthService, error) {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		signer:    signer,
		ttl:       ttl,
		cost:      cost,
		now:       time.Now,
		log:       log,
		dummyHash: dummy,
	}, nil
}

// Login verifies identifier (username or email) and password and opens a session.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	u, err := s.users.FindByLogin(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, apperr.ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		return nil, err
	}

	sid, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &models.Session{
		ID:        sid,
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	token, err := s.signer.Sign(sid, now, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return &LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, User: u.Public()}, nil
}

// Logout destroys the session behind token. Unknown, expired or malformed
// tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	sid, err := s.signer.Parse(token)
	if err != nil {
		return nil
	}
	return s.sessions.Delete(ctx, sid)
}

// Check resolves token to the authenticated principal. It returns nil, nil
// when the caller is not authenticated.
func (s *AuthService) Check(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, nil
	}
	sid, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil
	}

	sess, err := s.sessions.Get(ctx, sid, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Principal{SessionID: sid, User: u.Public()}, nil
}

// ChangePassword replaces the password of userID after verifying the current one.
// Other sessions of the user stay valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < MinPasswordLength {
		return apperr.ErrWeakPassword
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return apperr.ErrInvalidCurrentPassword
	}

	hash, err := hashPassword(next, s.cost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.log.Info("password changed", zap.Int64("user_id", userID))
	return nil
}

// ChangeProfile updates username and email. Uniqueness ignores the user's own row.
func (s *AuthService) ChangeProfile(ctx context.Context, userID int64, username, email string) (*models.PublicUser, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || !strings.Contains(email, "@") {
		return nil, apperr.ErrBadRequest
	}

	taken, err := s.users.IsUsernameTaken(ctx, username, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.ErrUsernameTaken
	}
	taken, err = s.users.IsEmailTaken(ctx, email, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.ErrEmailTaken
	}

	if err := s.users.UpdateProfile(ctx, userID, username, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

// CreateUser provisions an account.
func (s *AuthService) CreateUser(ctx context.Context, username, email, password string, role models.Role) (*models.PublicUser, error) {
	if len(password) < MinPasswordLength {
		return nil, apperr.ErrWeakPassword
	}
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &models.User{Username: username, Email: email, PasswordHash: hash, Role: role}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = id
	pub := u.Public()
	return &pub, nil
}

// SetPassword overwrites the password of username without checking the old one.
func (s *AuthService) SetPassword(ctx context.Context, username, password string) error {
	if len(password) < MinPasswordLength {
		return apperr.ErrWeakPassword
	}
	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}
	return s.users.SetPasswordByUsername(ctx, username, hash)
}

// EnsureAdmin creates the default admin when no user exists. It reports
// whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, password, email string) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateUser(ctx, DefaultAdminUsername, email, password, models.RoleAdmin); err != nil {
		return false, fmt.Errorf("create default admin: %w", err)
	}
	s.log.Warn("created default admin account, change its password",
		zap.String("username", DefaultAdminUsername), zap.String("email", email))
	return true, nil
}
