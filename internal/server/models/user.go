// Package models defines server-side data models persisted in the database.
package models

import "time"

// Roles assignable to a user.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered principal. PasswordHash is the only credential ever
// stored; the plaintext never reaches the database or the logs. Verified
// flips to true exactly once, on email confirmation. Users are never
// hard-deleted by the auth flow.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Verified     bool
	Role         string
	AvatarURL    string
	CreatedAt    time.Time
}
