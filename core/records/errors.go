package records

import (
	"errors"
	"fmt"

	"github.com/trezcool/rekodi/core"
)

var (
	// errors
	ErrIDExists      = errors.New("a record with this id already exists")
	ErrEmailExists   = errors.New("a record with this email already exists")
	ErrLinkExists    = errors.New("this link already exists")
	ErrUnknownRef    = errors.New("referenced record does not exist")
	ErrNoBackup      = errors.New("backend does not support backups")
	ErrInvalidRecord = errors.New("invalid record")
)

// IDExistsError reports a duplicate id on add.
func IDExistsError(kind, id string) error {
	return core.NewValidationError(ErrIDExists, core.FieldError{
		Field: "id",
		Error: fmt.Sprintf("a %s with id %q already exists", kind, id),
	})
}

// EmailExistsError reports an email already used by another record of the same kind.
func EmailExistsError(kind, email string) error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{
		Field: "email",
		Error: fmt.Sprintf("a %s with email %q already exists", kind, email),
	})
}

// LinkExistsError reports a registration or assignment added twice.
func LinkExistsError(kind, left, right string) error {
	return core.NewValidationError(ErrLinkExists, core.FieldError{
		Field: "course_id",
		Error: fmt.Sprintf("%s %s -> %s already exists", kind, left, right),
	})
}

// UnknownRefError reports a reference to a record that does not exist.
func UnknownRefError(field, kind, id string) error {
	return core.NewValidationError(ErrUnknownRef, core.FieldError{
		Field: field,
		Error: fmt.Sprintf("%s %q does not exist", kind, id),
	})
}

func NotFound(kind, id string) error {
	return core.NewNotFoundError(kind, id)
}

func linkID(left, right string) string {
	return left + "/" + right
}

// LinkNotFound reports a missing registration or assignment.
func LinkNotFound(kind, left, right string) error {
	return core.NewNotFoundError(kind, linkID(left, right))
}
