package models

import "time"

// UserRole represents the fixed set of platform roles.
type UserRole string

const (
	RoleVictim       UserRole = "victim"
	RoleInvestigator UserRole = "investigator"
	RoleAdmin        UserRole = "admin"
	RoleSuperAdmin   UserRole = "superadmin"
)

// AdminPanelEmail is the reserved address of the non-interactive system
// identity used to surface broadcasts. The row is created idempotently at
// startup, never from request handlers.
const AdminPanelEmail = "admin.panel@system.internal"

// ValidRole reports whether the value is one of the known roles.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleVictim, RoleInvestigator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User represents an account stored in the users table.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Bio          *string    `db:"bio" json:"bio,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"is_active"`
	IsSuperuser  bool       `db:"is_superuser" json:"is_superuser"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	DateJoined   time.Time  `db:"date_joined" json:"date_joined"`
	UpdatedAt    time.Time  `db:"updated_at" json:"-"`
}

// EffectiveRole resolves the caller's role for permission checks. The
// superuser flag coerces the role to admin regardless of the stored value.
func (u *User) EffectiveRole() UserRole {
	if u.IsSuperuser {
		return RoleAdmin
	}
	return u.Role
}

// FullName joins first and last name for display fields.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Investigator is the 1-1 profile row that exists only for
// investigator-role users.
type Investigator struct {
	ID         int64   `db:"id" json:"id"`
	UserID     int64   `db:"user_id" json:"user_id"`
	Department *string `db:"department" json:"department,omitempty"`
}

// UserFilter captures filtering criteria for the admin user directory.
type UserFilter struct {
	Role   *UserRole
	Active *bool
	Search string
}
