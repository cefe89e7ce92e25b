package models

import (
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned when an identifier cannot address any post.
var ErrInvalidID = errors.New("invalid id format")

// ValidationError carries every violation found for a record.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError wraps violations into an error with a stack trace.
func NewValidationError(violations []Violation) error {
	return errors.WithStack(&ValidationError{Violations: violations})
}

// IsValidationError reports whether err carries field violations.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// NewID returns a fresh post identifier.
func NewID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseID converts the hex form of an identifier.
func ParseID(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(ErrInvalidID, "parse id %q", s)
	}
	return id, nil
}
