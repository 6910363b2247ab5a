// Package common holds sentinel errors shared by stores, services and the
// HTTP layer. Callers match them with errors.Is.
package common

import "errors"

var (
	// store level
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrStoreUnavailable = errors.New("store unavailable")

	// service level
	ErrInvalidOperation = errors.New("invalid operation")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
)
