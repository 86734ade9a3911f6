package domain

import "time"

// User is an account known to the local primary authenticator.
type User struct {
	ID           string
	Email        string
	PasswordHash string // argon2id PHC string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
