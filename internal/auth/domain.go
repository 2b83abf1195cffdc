package auth

import "time"

// Account represents an authenticated login account. Role and school scope
// live on the principal's profile, not here.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
