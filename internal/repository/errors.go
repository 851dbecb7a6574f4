package repository

import "errors"

// Common errors.
var (
	// ErrModelNotFound means no URL pointed at an existing artifact.
	ErrModelNotFound = errors.New("model not found")
	// ErrIOFailure means an artifact exists but could not be fetched.
	ErrIOFailure = errors.New("artifact i/o failure")
)
