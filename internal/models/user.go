// Package models defines the domain types shared across layers.
package models

import "time"

// Role is a user's access level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a registered account.
type User struct {
	// ID is the unique identifier for the user.
	ID int64

	// Username is unique across users.
	Username string

	// Email is unique across users.
	Email string

	// PasswordHash is the bcrypt hash of the password. Never empty.
	PasswordHash string

	// Role is admin or user.
	Role Role

	// ResetToken and ResetTokenExpires are either both set or both nil.
	ResetToken        *string
	ResetTokenExpires *time.Time

	// LastLogin is nil until the first successful login.
	LastLogin *time.Time

	// CreatedAt is when the account was provisioned.
	CreatedAt time.Time
}

// PublicUser is the projection of User returned to clients.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Public strips credentials from u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
