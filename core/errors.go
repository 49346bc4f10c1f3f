package core

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports bad input: malformed fields, duplicate ids or dangling references.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// NotFoundError is returned when updating or deleting a record that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Entity, err.ID)
}

// PersistenceError wraps an I/O or query failure. The operation has been aborted.
type PersistenceError struct {
	Op  string
	Err error
}

func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func (err PersistenceError) Error() string {
	return err.Op + ": " + err.Err.Error()
}

func (err PersistenceError) Unwrap() error { return err.Err }

func (err PersistenceError) Cause() error { return err.Err }

// ParseError is returned when a store or config file holds malformed content.
type ParseError struct {
	Path string
	Err  error
}

func NewParseError(path string, err error) error {
	return &ParseError{Path: path, Err: err}
}

func (err ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", err.Path, err.Err)
}

func (err ParseError) Unwrap() error { return err.Err }

// as finds the first error in err's chain matching target.
// The chain is walked both through errors.Wrap causes and Unwrap.
func as(err error, target interface{}) bool {
	if stderrors.As(err, target) {
		return true
	}
	return stderrors.As(errors.Cause(err), target)
}

func IsValidation(err error) bool {
	var verr *ValidationError
	return as(err, &verr)
}

func IsNotFound(err error) bool {
	var nerr *NotFoundError
	return as(err, &nerr)
}

func IsPersistence(err error) bool {
	var perr *PersistenceError
	return as(err, &perr)
}

func IsParse(err error) bool {
	var perr *ParseError
	return as(err, &perr)
}

// AsValidation returns the ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := as(err, &verr)
	return verr, ok
}
