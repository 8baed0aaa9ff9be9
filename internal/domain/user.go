package domain

import "time"

// Role enumerates portal actor roles.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleClient Role = "CLIENT"
)

// UserStatus represents lifecycle states for a portal account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for portal accounts (agency admins and clients).
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor identifies who requested a lifecycle operation. The boundary layer
// authenticates it; the engine performs role policy checks only.
type Actor struct {
	ID   string
	Role Role
}
