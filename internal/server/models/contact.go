package models

import "time"

// Contact is an address-book entry owned by a single user. Birthday keeps
// only the date part; Notes may be empty.
type Contact struct {
	ID       string
	UserID   string
	Name     string
	Surname  string
	Email    string
	Phone    string
	Birthday time.Time
	Notes    string
}
