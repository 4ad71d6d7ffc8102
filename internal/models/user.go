package models

import "time"

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Provisioned  bool      `json:"provisioned"` // created by an operator, eligible for configured permissions
	CreatedAt    time.Time `json:"created_at"`
}
