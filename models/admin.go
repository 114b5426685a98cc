package models

import "time"

const (
	RoleAdmin string = "admin"
	RoleMain  string = "main"
)

type Administrator struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// RegCode is a one-shot registration code for creating a new administrator.
type RegCode struct {
	Code      string    `json:"code" db:"code"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
