package entity

import "time"

// Roles an account can hold. A user keeps its role for life in practice,
// though the administrative update path may overwrite it.
const (
	RoleLibrarian = "LIBRARIAN"
	RoleMember    = "MEMBER"
)

// ValidRole reports whether role is one of the two known roles.
func ValidRole(role string) bool {
	return role == RoleLibrarian || role == RoleMember
}

// User represents an account row in the `users` table. Members are
// soft-deleted: is_active flips to false and the row stays.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}
