package model

import (
	"time"
)

// User role constants
const (
	RoleAdmin      = "admin"
	RoleDoctor     = "doctor"
	RoleNurse      = "nurse"
	RoleTechnician = "technician"
)

var Roles = []string{RoleAdmin, RoleDoctor, RoleNurse, RoleTechnician}

// User represents an API account
type User struct {
	Base
	Username            string     `json:"username" db:"username"`
	Email               string     `json:"email" db:"email"`
	Name                string     `json:"name" db:"name"`
	Role                string     `json:"role" db:"role"`
	Active              bool       `json:"active" db:"active"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	FailedLoginAttempts int        `json:"failedLoginAttempts" db:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"lockedUntil" db:"locked_until"`
	LastLoginAt         *time.Time `json:"lastLoginAt" db:"last_login_at"`
}

// IsLocked reports whether a lockout is still running at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=admin doctor nurse technician"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Email  *string `json:"email" binding:"omitempty,email"`
	Name   *string `json:"name" binding:"omitempty,max=100"`
	Role   *string `json:"role" binding:"omitempty,oneof=admin doctor nurse technician"`
	Active *bool   `json:"active"`
}

type UserFilters struct {
	BaseFilter
	Role   string `form:"role" binding:"omitempty,oneof=admin doctor nurse technician"`
	Active *bool  `form:"active"`
}

func (f *UserFilters) Matches(u *User) bool {
	if f == nil {
		return true
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Active != nil && u.Active != *f.Active {
		return false
	}
	return f.MatchesSearch(u.Username, u.Email, u.Name)
}
