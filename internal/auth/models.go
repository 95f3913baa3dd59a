// Package auth owns user accounts: registration, credential verification, and
// the profile surface behind /auth/me.
package auth

import "time"

// User is a registered account. PasswordHash never leaves the package.
type User struct {
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
