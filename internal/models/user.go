package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the permission level of a profile inside its company
type Role string

// Known roles
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Profile represents a system user (the identity record)
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Email     string `json:"email" db:"email"`
	FullName  string `json:"full_name" db:"full_name"`
	Phone     string `json:"phone" db:"phone"`
	AvatarURL string `json:"avatar_url" db:"avatar_url"`

	PasswordHash string `json:"-" db:"password_hash"`

	Role      Role       `json:"role" db:"role"`
	CompanyID *uuid.UUID `json:"company_id" db:"company_id"`

	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty" db:"last_sign_in_at"`
}

// HasCompany reports whether the profile belongs to a tenant
func (p *Profile) HasCompany() bool {
	return p.CompanyID != nil && *p.CompanyID != uuid.Nil
}
