// Package apperr holds the domain error taxonomy shared by services and the
// HTTP layer. Every error carries a stable machine-readable code.
package apperr

import "errors"

// Error is a domain failure with a stable code and a user-safe message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// New creates a domain error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	// auth
	ErrInvalidCredentials     = New("invalid_credentials", "invalid username or password")
	ErrUnauthorized           = New("unauthorized", "authentication required")
	ErrInvalidCurrentPassword = New("invalid_current_password", "current password is incorrect")
	ErrWeakPassword           = New("weak_password", "password must be at least 6 characters")
	ErrUsernameTaken          = New("username_taken", "username is already taken")
	ErrEmailTaken             = New("email_taken", "email is already taken")

	// reset flow; both render the same way to clients
	ErrInvalidToken = New("invalid_token", "invalid or expired reset token")
	ErrExpiredToken = New("expired_token", "invalid or expired reset token")

	// settings
	ErrUnknownField = New("unknown_field", "unknown settings field")

	// uploads
	ErrFileTooLarge    = New("file_too_large", "file is too large")
	ErrUnsupportedType = New("unsupported_type", "unsupported file type")
	ErrStorage         = New("storage_error", "failed to store file")

	ErrBadRequest  = New("bad_request", "malformed request")
	ErrRateLimited = New("rate_limited", "too many requests")

	// ErrInternal is what clients see for any non-domain failure.
	ErrInternal = New("internal", "internal server error")
)

// Code returns the machine-readable code of err, or "internal" when err is
// not a domain error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
