package domain

import "errors"

// Sentinel errors shared by the identity repositories and services; handlers
// map them to HTTP status codes.
var (
	// ErrNotFound indicates no identity exists for the given id or email.
	ErrNotFound = errors.New("identity not found")
	// ErrDuplicateEmail indicates the email is already taken by an identity
	// of any role.
	ErrDuplicateEmail = errors.New("email already registered")
)
