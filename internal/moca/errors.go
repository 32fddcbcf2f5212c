package moca

import (
	"errors"
	"fmt"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrMalformedRegister is returned when a register word is missing or is not valid hex.
	ErrMalformedRegister = errors.New("malformed register")

	// ErrEmptyNodeSet reports a network bitmask with no active nodes. It is a warning.
	ErrEmptyNodeSet = errors.New("empty node set")

	// ErrDecodeFailure marks a node pair whose FMR words could not be decoded.
	ErrDecodeFailure = errors.New("fmr decode failure")
)

// RegisterError describes a register word that could not be read
type RegisterError struct {
	Field string `json:"field"`
	Index int    `json:"index"`
	Value string `json:"value,omitempty"`
	Cause error  `json:"cause,omitempty"`
}

func (e *RegisterError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("register %s: malformed value %q", e.Field, e.Value)
	}
	if e.Cause != nil {
		return fmt.Sprintf("register %s[%d]: %v", e.Field, e.Index, e.Cause)
	}
	return fmt.Sprintf("register %s[%d]: malformed value %q", e.Field, e.Index, e.Value)
}

func (e *RegisterError) Unwrap() error {
	return e.Cause
}

// Is reports every RegisterError as ErrMalformedRegister.
func (e *RegisterError) Is(target error) bool {
	return target == ErrMalformedRegister
}

// DecodeError describes a failed FMR entry for one ordered pair of nodes
type DecodeError struct {
	From   int   `json:"from"`
	To     int   `json:"to"`
	Cursor int   `json:"cursor"`
	Cause  error `json:"cause,omitempty"`
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("fmr %d->%d at word %d: %v", e.From, e.To, e.Cursor, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports every DecodeError as ErrDecodeFailure.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecodeFailure
}

// missingWord builds the error for an index beyond the end of a register array.
func missingWord(field string, index int) *RegisterError {
	return &RegisterError{
		Field: field,
		Index: index,
		Cause: fmt.Errorf("index %d out of range: %w", index, ErrMalformedRegister),
	}
}
