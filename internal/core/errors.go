package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData marks a decode attempt against an empty hash, which is how
	// redis reports a missing key.
	ErrNoData = errors.New("no data")

	ErrInvalidUserID  = errors.New("user_id must be a positive integer")
	ErrInvalidMessage = errors.New("message must be 1-1000 characters")
	ErrInvalidChannel = errors.New("unknown notification type")
)

// MissingFieldError marks a required hash field that is absent or blank.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

// BadEnumError marks a stored enum value outside the recognized set.
type BadEnumError struct {
	Field string
	Value string
}

func (e *BadEnumError) Error() string {
	return fmt.Sprintf("unrecognized %s value %q", e.Field, e.Value)
}

// BadValueError marks a field that is present but does not parse.
type BadValueError struct {
	Field string
	Value string
	Err   error
}

func (e *BadValueError) Error() string {
	return fmt.Sprintf("invalid %s value %q: %v", e.Field, e.Value, e.Err)
}

func (e *BadValueError) Unwrap() error { return e.Err }
