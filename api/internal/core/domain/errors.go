package domain

import "errors"

var (
	// ErrMissingField is returned when a required form field is absent.
	ErrMissingField = errors.New("required field missing")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)
