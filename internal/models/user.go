package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleUser     Role = "USER"
	RoleAdmin    Role = "ADMIN"
	RoleProvider Role = "PROVIDER"
)

type AuthProvider string

const (
	AuthProviderLocal AuthProvider = "LOCAL"
	AuthProviderOIDC  AuthProvider = "OIDC"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	ID           string       `bun:"id,pk" json:"id"`
	Username     string       `bun:"username,unique,notnull" json:"username"`
	Email        string       `bun:"email,unique,notnull" json:"email"`
	PasswordHash string       `bun:"password_hash" json:"-"`
	Role         Role         `bun:"role,notnull" json:"role"`
	AuthProvider AuthProvider `bun:"auth_provider,notnull" json:"authProvider"`
	CreatedAt    time.Time    `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
