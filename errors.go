package blogit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedID is returned when an identifier is not a valid UUID.
	ErrMalformedID = errors.New("malformatted id")
	// ErrInvalidToken is returned when a bearer token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingToken is returned when a write request carries no usable token.
	ErrMissingToken = errors.New("token missing or invalid")
	// ErrForbidden is returned when a user acts on a blog owned by someone else.
	ErrForbidden = errors.New("only the creator can delete a blog")
)

// FieldError describes one failed field constraint.
type FieldError struct {
	Path    string
	Message string
}

// ValidationError is returned when a record violates its schema. The message
// lists every failed field.
type ValidationError struct {
	Model  string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Path+": "+f.Message)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Model, strings.Join(parts, ", "))
}

func (e *ValidationError) add(path, msg string) {
	e.Fields = append(e.Fields, FieldError{Path: path, Message: msg})
}

func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func requiredMsg(path string) string {
	return fmt.Sprintf("Path `%s` is required.", path)
}

func minLengthMsg(path, value string, min int) string {
	return fmt.Sprintf("Path `%s` (`%s`) is shorter than the minimum allowed length (%d).", path, value, min)
}

func uniqueMsg(path, value string) string {
	return fmt.Sprintf("Error, expected `%s` to be unique. Value: `%s`", path, value)
}
