// Package repository provides SQLite persistence for users, sessions and settings.
package repository

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const sqliteTimeLayout = "2006-01-02 15:04:05"

// uniqueViolation maps a users UNIQUE constraint failure to its domain error.
func uniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return apperr.ErrUsernameTaken
	case strings.Contains(msg, "users.email"):
		return apperr.ErrEmailTaken
	}
	return nil
}

// parseTimestamp accepts unix seconds, SQLite CURRENT_TIMESTAMP text and
// RFC 3339 (older releases stored ISO strings).
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), true
	}
	for _, layout := range []string{time.RFC3339Nano, sqliteTimeLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
