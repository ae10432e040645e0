// Package faults defines the error taxonomy shared by the drift engine.
package faults

import "errors"

// Category classifies an error by how the engine reacts to it.
type Category string

const (
	// FatalInputError aborts a run before any report is produced.
	FatalInputError Category = "FatalInputError"
	// ParseError excludes a single document and becomes a warning.
	ParseError Category = "ParseError"
	// IdentityAmbiguity marks several documents resolving to one key on one side.
	IdentityAmbiguity Category = "IdentityAmbiguity"
	// MissingCounterpart is informational: a key exists on one side only.
	MissingCounterpart Category = "MissingCounterpart"
	// ConfigError rejects invalid options before a run starts.
	ConfigError Category = "ConfigError"
)

// Error is a categorised error carrying the offending path, if any.
type Error struct {
	Category Category
	Message  string
	Path     string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Category)
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a categorised error without a cause.
func New(category Category, message, path string) *Error {
	return &Error{Category: category, Message: message, Path: path}
}

// Wrap returns a categorised error around cause.
func Wrap(category Category, message, path string, cause error) *Error {
	return &Error{Category: category, Message: message, Path: path, Cause: cause}
}

// IsCategory reports whether any error in err's chain is an *Error of category.
func IsCategory(err error, category Category) bool {
	if err == nil {
		return false
	}
	var typed *Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Category == category
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return IsCategory(err, FatalInputError) || IsCategory(err, ConfigError)
}
