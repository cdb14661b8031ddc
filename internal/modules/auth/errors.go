package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrUnauthorized       = errors.New("unauthorized")

	// ErrInvalidRefreshToken covers every token the store no longer vouches
	// for: unknown, replaced by rotation, or deleted on logout. Callers
	// cannot tell the cases apart on purpose.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)
