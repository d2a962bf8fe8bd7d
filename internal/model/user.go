// Package model defines the data structures used throughout the application.
package model

import "time"

// LoginType tags how an account authenticates: a local password account or
// an OAuth-linked account. OAuth-linked accounts have no password hash.
type LoginType string

const (
	LoginAccount LoginType = "ACCOUNT"
	LoginGoogle  LoginType = "GOOGLE"
	LoginGithub  LoginType = "GITHUB"
)

// User represents a registered account.
//
// Name, Email, and Phone are not individually unique columns, but sign-up
// refuses to create a record when any of the three collides with an existing
// user. PasswordHash is empty for OAuth-only accounts — those sessions are
// issued on provider trust, never by password comparison.
//
// Role is populated only by the sign-in projection (a join over the
// role→group→permission graph); most lookups leave it nil.
type User struct {
	ID           string     `json:"user_id"         db:"id"`
	Name         string     `json:"user_name"       db:"name"`
	Email        string     `json:"user_email"      db:"email"`      // may be empty
	Phone        string     `json:"user_phone,omitempty" db:"phone"` // may be empty
	PasswordHash string     `json:"-"               db:"password_hash"`
	LoginType    LoginType  `json:"user_type_login" db:"login_type"`
	FirstName    string     `json:"user_first_name,omitempty" db:"first_name"`
	LastName     string     `json:"user_last_name,omitempty"  db:"last_name"`
	ImageURL     string     `json:"user_image_url,omitempty"  db:"image_url"`
	DateOfBirth  *time.Time `json:"user_date_of_birth,omitempty" db:"date_of_birth"`
	Role         *Role      `json:"-"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Role is the authorization entry point for a user. A role either carries
// the all-permissions flag (admin) or grants permissions through its groups.
type Role struct {
	ID               string  `json:"role_id"   db:"id"`
	Name             string  `json:"role_name" db:"name"`
	IsAllPermissions bool    `json:"role_is_all_permissions" db:"is_all_permissions"`
	Groups           []Group `json:"-"`
}

// Group aggregates permissions. A role may belong to several groups and the
// same permission key may appear in more than one of them.
type Group struct {
	ID          string       `json:"group_id"   db:"id"`
	Name        string       `json:"group_name" db:"name"`
	Permissions []Permission `json:"-"`
}

// Permission is a single grantable capability, identified by Key.
type Permission struct {
	ID          string `json:"permission_id"          db:"id"`
	Name        string `json:"permission_name"        db:"name"`
	Key         string `json:"permission_key"         db:"key"`
	Router      string `json:"permission_router"      db:"router"`
	Description string `json:"permission_description" db:"description"`
}
