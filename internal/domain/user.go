package domain

import "time"

// Roles mirror the frontend role picker. Admins may invite, suspend, and
// remove other members of their organization.
const (
	RoleAdmin  = 2
	RoleMember = 3
)

// User represents an account inside an organization. PasswordHash is never
// serialized into responses, logs, or session tokens.
type User struct {
	ID           int64
	OrgID        int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	RoleID       int
	AvatarURL    string
	IsActive     bool
	IsInvited    bool
	Registered   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.RoleID == RoleAdmin
}

// Organization groups users and their connected storefronts.
type Organization struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
