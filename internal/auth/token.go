// Package auth signs and verifies session cookies.
//
// The cookie carries an HS256 JWT whose jti is the server-side session id.
// A valid signature only proves the id was issued by this server; the
// sessions table still decides whether the session is alive.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "ukarch-cms"

// CookieName is the name of the session cookie.
const CookieName = "ukarch_session"

// ErrInvalidToken is returned for malformed, forged or expired cookies.
var ErrInvalidToken = errors.New("invalid session token")

// SessionSigner signs session ids.
type SessionSigner struct {
	secret []byte
	now    func() time.Time
}

// NewSessionSigner creates a signer with the given secret.
func NewSessionSigner(secret string) *SessionSigner {
	return &SessionSigner{secret: []byte(secret), now: time.Now}
}

// Sign returns the cookie value for sessionID.
func (s *SessionSigner) Sign(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies value and returns the session id it carries.
func (s *SessionSigner) Parse(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}
