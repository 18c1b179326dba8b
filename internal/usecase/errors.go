package usecase

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrDependencyUnavailable  = errors.New("dependency unavailable")
	ErrStatusStoreUnavailable = errors.New("fixture status store unavailable")
	ErrPassInProgress         = errors.New("scheduling pass already running")
)
