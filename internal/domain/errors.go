package domain

import (
	"fmt"

	"rowmap/internal/errors"
)

// Sentinels matched by errors.Is against the typed errors below
var (
	ErrCoercion          = errors.New("coercion failed")
	ErrRecordNotFound    = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrMissingKey        = errors.New("missing foreign key")
	ErrUnboundRepository = errors.New("repository not bound")
)

// CoercionError reports a value that cannot be coerced to its declared type
type CoercionError struct {
	Attribute string
	Value     any
	Type      string
	Cause     error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("cannot coerce %s=%#v to %s", e.Attribute, e.Value, e.Type)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error        { return e.Cause }
func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }

// RecordNotFoundError reports an update against a key that is not stored
type RecordNotFoundError struct {
	Collection string
	Key        any
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("%s: record %v not found", e.Collection, e.Key)
}

func (e *RecordNotFoundError) Is(target error) bool { return target == ErrRecordNotFound }

// DuplicateKeyError reports a create with a pre-assigned key that collides
// with a stored or previously issued key
type DuplicateKeyError struct {
	Collection string
	Key        any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate key %v", e.Collection, e.Key)
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// MissingKeyError reports a one-to-many association declared without a foreign key
type MissingKeyError struct {
	Association string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("association %s: foreign key is required", e.Association)
}

func (e *MissingKeyError) Is(target error) bool { return target == ErrMissingKey }

// UnboundRepositoryError reports an association used before a repository was bound
type UnboundRepositoryError struct {
	Association string
}

func (e *UnboundRepositoryError) Error() string {
	return fmt.Sprintf("association %s: repository not bound", e.Association)
}

func (e *UnboundRepositoryError) Is(target error) bool { return target == ErrUnboundRepository }
