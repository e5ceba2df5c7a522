package apperrors

import (
	"errors"
)

var (
	// ErrEmailTaken signals a signup against an already-registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password; callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken covers every token failure mode: bad signature,
	// malformed structure, expired, or missing subject.
	ErrInvalidToken = errors.New("invalid authentication token")

	ErrUserNotFound = errors.New("user not found")
	ErrNoDreams     = errors.New("no dreams recorded for this user")
)
