package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/mailer"
	"github.com/atinyakov/ukarch-cms/internal/repository"
)

// ResetTokenTTL is how long an issued reset token stays redeemable.
const ResetTokenTTL = time.Hour

// ResetService implements the forgot-password lifecycle.
type ResetService struct {
	users    UserRepository
	mailer   mailer.Mailer
	linkBase string
	ttl      time.Duration
	cost     int
	now      func() time.Time
	log      *zap.Logger

	// dispatch runs mail delivery off the request path so known and unknown
	// emails answer in similar time.
	dispatch func(func())
}

// NewResetService constructs a ResetService. linkBase is the public site URL.
func NewResetService(users UserRepository, m mailer.Mailer, linkBase string, cost int, log *zap.Logger) *ResetService {
	if cost < bcrypt.DefaultCost {
		cost = bcrypt.DefaultCost
	}
	return &ResetService{
		users:    users,
		mailer:   m,
		linkBase: strings.TrimRight(linkBase, "/"),
		ttl:      ResetTokenTTL,
		cost:     cost,
		now:      time.Now,
		log:      log,
		dispatch: func(f func()) { go f() },
	}
}

// ResetLink is the page a reset token is redeemed on.
func (s *ResetService) ResetLink(token string) string {
	return s.linkBase + "/admin/reset-password?token=" + token
}

// RequestReset issues a reset token for email and mails the link. The result
// is identical whether or not the email belongs to an account.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := randomHex(32)
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, u.ID, token, s.now().Add(s.ttl)); err != nil {
		return err
	}

	link := s.ResetLink(token)
	to := u.Email
	userID := u.ID
	s.dispatch(func() {
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := s.mailer.SendPasswordReset(mctx, to, link); err != nil {
			s.log.Warn("failed to send password reset email", zap.Int64("user_id", userID), zap.Error(err))
		}
	})
	s.log.Info("password reset token issued", zap.Int64("user_id", userID))
	return nil
}

// ResetPassword redeems token and sets a new password. A token works once.
func (s *ResetService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return apperr.ErrInvalidToken
	}
	if len(password) < MinPasswordLength {
		return apperr.ErrWeakPassword
	}

	u, err := s.users.FindByResetToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if u.ResetToken == nil || subtle.ConstantTimeCompare([]byte(*u.ResetToken), []byte(token)) != 1 {
		return apperr.ErrInvalidToken
	}
	if u.ResetTokenExpires == nil || !s.now().Before(*u.ResetTokenExpires) {
		if err := s.users.ClearResetToken(ctx, u.ID, token); err != nil {
			s.log.Warn("failed to clear expired reset token", zap.Int64("user_id", u.ID), zap.Error(err))
		}
		return apperr.ErrExpiredToken
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}
	ok, err := s.users.ConsumeResetToken(ctx, u.ID, token, hash)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrInvalidToken
	}
	s.log.Info("password reset completed", zap.Int64("user_id", u.ID))
	return nil
}
