package inspect

import "errors"

var (
	// ErrEmptyIdentity is returned when registering a strategy under an
	// empty language or kernel name.
	ErrEmptyIdentity = errors.New("identity must not be empty")

	// ErrAlreadyRegistered is returned when an identity already maps to a
	// strategy. Use the registry's explicit replacement path instead of
	// re-registering.
	ErrAlreadyRegistered = errors.New("strategy already registered")
)
