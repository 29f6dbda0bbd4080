package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField signals a required field that is absent or null.
	ErrMissingField = errors.New("missing required field")
	// ErrMultiValuedField signals a sequence where a single value was required.
	ErrMultiValuedField = errors.New("multi-valued field")
	// ErrConfiguration signals an unusable signature configuration (fatal at startup).
	ErrConfiguration = errors.New("invalid configuration")
	// ErrInvalidDocument signals a request body that is not a document.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrDocumentNotFound signals a missing stored document.
	ErrDocumentNotFound = errors.New("document not found")
)

// FieldError reports which field failed required-value extraction.
// Err is ErrMissingField or ErrMultiValuedField.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if errors.Is(e.Err, ErrMultiValuedField) {
		return fmt.Sprintf("requires single-valued %s field: %s", e.Field, e.Err.Error())
	}
	return fmt.Sprintf("requires %s field: %s", e.Field, e.Err.Error())
}

func (e *FieldError) Unwrap() error { return e.Err }

// NewMissingField creates a FieldError for an absent or null field.
func NewMissingField(field string) error {
	return &FieldError{Field: field, Err: ErrMissingField}
}

// NewMultiValuedField creates a FieldError for a sequence-valued field.
func NewMultiValuedField(field string) error {
	return &FieldError{Field: field, Err: ErrMultiValuedField}
}
