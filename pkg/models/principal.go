// Package models contains shared data models used across the CraftLink codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Principal roles. Users post jobs, artisans take them, admins manage the
// platform. All three share the same credential and lockout fields.
const (
	RoleUser    = "user"
	RoleArtisan = "artisan"
	RoleAdmin   = "admin"
)

// Principal is any credentialed actor subject to the login-lockout policy.
// The password hash is never serialized.
type Principal struct {
	ID            uuid.UUID  `db:"id"             json:"id"`
	Email         string     `db:"email"          json:"email"`
	PasswordHash  string     `db:"password_hash"  json:"-"`
	FirstName     string     `db:"first_name"     json:"first_name"`
	LastName      string     `db:"last_name"      json:"last_name"`
	Role          string     `db:"role"           json:"role"`
	LoginAttempts int        `db:"login_attempts" json:"-"`
	IsLocked      bool       `db:"is_locked"      json:"-"`
	LockUntil     *time.Time `db:"lock_until"     json:"-"`
	LastLogin     *time.Time `db:"last_login"     json:"last_login,omitempty"`
	LoginTime     *time.Time `db:"login_time"     json:"login_time,omitempty"`
	IsActive      bool       `db:"is_active"      json:"is_active"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"     json:"updated_at"`
}

var validRoles = map[string]bool{
	RoleUser:    true,
	RoleArtisan: true,
	RoleAdmin:   true,
}

// ValidRole reports whether role is one of the known principal roles.
func ValidRole(role string) bool {
	return validRoles[role]
}
