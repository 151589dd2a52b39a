package entities

import (
	"time"

	"github.com/leafsii/leafsii-cms/internal/db/interfaces"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleAuthor = "author"
)

// User represents a user entity
type User struct {
	ID                  string     `json:"id" db:"id"`
	Username            string     `json:"username" db:"username"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	FullName            string     `json:"full_name" db:"full_name"`
	Role                string     `json:"role" db:"role"`
	ResetTokenHash      *string    `json:"-" db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `json:"-" db:"reset_token_expires_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSchema defines the database schema for users
var UserSchema = &interfaces.Schema{
	TableName: "users",
	Fields: withTimestamps(map[string]interfaces.FieldSchema{
		"username": {
			Type:   "string",
			Unique: true,
		},
		"email": {
			Type:   "string",
			Unique: true,
		},
		"password_hash": {
			Type: "string",
		},
		"full_name": {
			Type:         "string",
			DefaultValue: "",
		},
		"role": {
			Type:         "string",
			DefaultValue: RoleAuthor,
		},
		"reset_token_hash": {
			Type:     "string",
			Nullable: true,
			Unique:   true,
		},
		"reset_token_expires_at": {
			Type:     "time",
			Nullable: true,
		},
	}),
	Indexes: []interfaces.Index{
		{
			Name:    "idx_users_username",
			Columns: []string{"username"},
			Unique:  true,
		},
		{
			Name:    "idx_users_email",
			Columns: []string{"email"},
			Unique:  true,
		},
		{
			Name:    "idx_users_role",
			Columns: []string{"role"},
		},
	},
}

// UserFromRecord maps a users row.
func UserFromRecord(r interfaces.Record) *User {
	return &User{
		ID:                  getString(r, "id"),
		Username:            getString(r, "username"),
		Email:               getString(r, "email"),
		PasswordHash:        getString(r, "password_hash"),
		FullName:            getString(r, "full_name"),
		Role:                getString(r, "role"),
		ResetTokenHash:      getStringPtr(r, "reset_token_hash"),
		ResetTokenExpiresAt: getTimePtr(r, "reset_token_expires_at"),
		CreatedAt:           getTime(r, "created_at"),
		UpdatedAt:           getTime(r, "updated_at"),
	}
}

// Record returns the writable columns of the user.
func (u *User) Record() interfaces.Record {
	return interfaces.Record{
		"username":               u.Username,
		"email":                  u.Email,
		"password_hash":          u.PasswordHash,
		"full_name":              u.FullName,
		"role":                   u.Role,
		"reset_token_hash":       nullable(u.ResetTokenHash),
		"reset_token_expires_at": nullable(u.ResetTokenExpiresAt),
	}
}
