package services

import "errors"

// MaxPasswordBytes is the longest secret bcrypt can digest without truncating.
const MaxPasswordBytes = 72

// MaxUsernameLength is the longest username in characters.
const MaxUsernameLength = 80

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrInvalidInput       = errors.New("invalid input")
)
