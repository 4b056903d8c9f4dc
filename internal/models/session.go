package models

import "time"

// Session is a server-side authentication record.
type Session struct {
	ID        string
	UserID    int64
	Username  string
	Role      Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Principal is the authenticated caller resolved from a live session.
type Principal struct {
	SessionID string
	User      PublicUser
}
