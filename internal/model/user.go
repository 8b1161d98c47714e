package model

import "time"

// User roles. The first account ever registered becomes the admin; everyone
// after that starts as a regular user and can be promoted by an admin.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
//
// PasswordHash holds the bcrypt hash for email/password logins. Accounts
// created through Google OAuth have an empty hash — they can only sign in
// via the provider.
//
// The `json:"-"` tag on PasswordHash means encoding/json skips the field
// entirely, so no handler can leak the hash by accident.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"` // "user" or "admin"
	PasswordHash string    `json:"-"`
	IconCount    int64     `json:"iconCount,omitempty"` // filled by admin list queries
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
