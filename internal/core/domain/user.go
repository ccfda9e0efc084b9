package domain

import "time"

// UserRole enumerates the access levels an account can hold.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleStaff UserRole = "staff"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         UserRole
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins the first and last name for display purposes.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Sanitized returns a copy of the user with secret material removed.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// UserUpdate carries the optional fields of a profile mutation. Nil fields
// are left untouched.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
}
