package core

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	verr := NewValidationError(errors.New("bad"), FieldError{Field: "email", Error: "invalid email format"})
	nerr := NewNotFoundError("student", "1")
	perr := NewPersistenceError("writing records.json", os.ErrPermission)
	parseErr := NewParseError("records.json", errors.New("unexpected EOF"))

	tests := []struct {
		name                            string
		err                             error
		valid, notFound, persist, parse bool
	}{
		{name: "validation", err: verr, valid: true},
		{name: "wrapped validation", err: errors.Wrap(verr, "adding student"), valid: true},
		{name: "not found", err: nerr, notFound: true},
		{name: "wrapped not found", err: errors.Wrap(nerr, "deleting"), notFound: true},
		{name: "persistence", err: perr, persist: true},
		{name: "parse", err: errors.WithMessage(parseErr, "opening"), parse: true},
		{name: "plain", err: errors.New("boom")},
		{name: "nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidation(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.persist, IsPersistence(tt.err))
			assert.Equal(t, tt.parse, IsParse(tt.err))
		})
	}

	assert.True(t, errors.Is(perr, os.ErrPermission))
	assert.Nil(t, NewPersistenceError("noop", nil))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `student "1" not found`, NewNotFoundError("student", "1").Error())
	assert.Equal(t, "writing x: permission denied", NewPersistenceError("writing x", os.ErrPermission).Error())
	assert.Equal(t, "parsing x.json: bad", NewParseError("x.json", errors.New("bad")).Error())
	assert.Equal(t, "email: invalid", NewValidationError(nil, FieldError{Field: "email", Error: "invalid"}).Error())
	assert.Equal(t, "validation failed", NewValidationError(nil).Error())
}
