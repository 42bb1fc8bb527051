package domain

import "time"

// User is an account that can authenticate against the service.
type User struct {
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
