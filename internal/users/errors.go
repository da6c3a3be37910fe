package users

import "errors"

var (
	ErrInvalidInput = errors.New("users: invalid input")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so login failures do not reveal which emails are registered.
	ErrInvalidCredentials = errors.New("users: invalid email or password")
	ErrAccountDeactivated = errors.New("users: account is deactivated")
	ErrUnauthenticated    = errors.New("users: authentication required")
	ErrForbidden          = errors.New("users: forbidden")
	ErrInvalidRole        = errors.New("users: invalid role")
	ErrDuplicateIdentity  = errors.New("users: username or email already exists")
	ErrNotFound           = errors.New("users: not found")
)
