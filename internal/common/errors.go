// Package common defines shared constants and sentinel errors used across
// client and server layers of fieldsync. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidation rejects a payload the server cannot store.
	ErrValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Synchronization preconditions.
	ErrNotLocal  = errors.New("entity must be a local entity")
	ErrOffline   = errors.New("cannot synchronize: app is offline")
	ErrInvalidID = errors.New("saved entity has no valid id")

	// ErrUnknownOperation is returned by the server for an operation name it
	// does not serve.
	ErrUnknownOperation = errors.New("unknown operation")
)

// ErrorCode is the stable, machine readable code carried by EntityError.
type ErrorCode string

const (
	CodeLoadEntity        ErrorCode = "LOAD_ENTITY_ERROR"
	CodeSaveEntity        ErrorCode = "SAVE_ENTITY_ERROR"
	CodeSynchronizeEntity ErrorCode = "SYNCHRONIZE_ENTITY_ERROR"
	CodeDeleteEntity      ErrorCode = "DELETE_ENTITY_ERROR"
)

// EntityError reports a failed operation on an entity. Payload holds the
// attempted entity, when there is one, for diagnostics.
type EntityError struct {
	Code    ErrorCode
	Op      string
	Payload any
	Err     error
}

// Sentinels for errors.Is. They match any EntityError with the same code.
var (
	ErrLoadEntity        = &EntityError{Code: CodeLoadEntity}
	ErrSaveEntity        = &EntityError{Code: CodeSaveEntity}
	ErrSynchronizeEntity = &EntityError{Code: CodeSynchronizeEntity}
	ErrDeleteEntity      = &EntityError{Code: CodeDeleteEntity}
)

func (e *EntityError) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an EntityError with the same code.
func (e *EntityError) Is(target error) bool {
	t, ok := target.(*EntityError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func NewLoadEntityError(op string, err error) error {
	return &EntityError{Code: CodeLoadEntity, Op: op, Err: err}
}

func NewSaveEntityError(op string, payload any, err error) error {
	return &EntityError{Code: CodeSaveEntity, Op: op, Payload: payload, Err: err}
}

func NewSynchronizeEntityError(payload any, err error) error {
	return &EntityError{Code: CodeSynchronizeEntity, Op: "synchronize", Payload: payload, Err: err}
}

func NewDeleteEntityError(op string, err error) error {
	return &EntityError{Code: CodeDeleteEntity, Op: op, Err: err}
}

// CodeOf returns the code of the first EntityError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var ee *EntityError
	if errors.As(err, &ee) {
		return ee.Code, true
	}
	return "", false
}
