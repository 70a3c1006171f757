package domain

import (
	"slices"
	"time"
)

// Role is the access level attached to a user account.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Allowed reports whether role is a member of required. An empty required
// set admits any authenticated role.
func Allowed(role Role, required []Role) bool {
	if len(required) == 0 {
		return true
	}
	return slices.Contains(required, role)
}

// User models an account that can sign in and borrow books.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Role         Role      `json:"role"`
	Token        string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPatch carries the optional profile fields a user may change.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// Apply copies every supplied field onto u.
func (p UserPatch) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
}
