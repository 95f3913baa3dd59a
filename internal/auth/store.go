package auth

import (
	"context"

	dErrors "alphabase/pkg/domain-errors"
)

// ErrUserNotFound keeps lookup misses consistent across implementations.
var ErrUserNotFound = dErrors.New(dErrors.CodeNotFound, "user not found")

// Store persists user accounts. Usernames and email addresses are both
// unique.
type Store interface {
	// Create inserts a new user. It returns a conflict error when the
	// username or email is already taken.
	Create(ctx context.Context, user User) error

	// GetByUsername returns the user, or ErrUserNotFound.
	GetByUsername(ctx context.Context, username string) (User, error)

	// EmailTaken reports whether any account uses the address.
	EmailTaken(ctx context.Context, email string) (bool, error)
}
