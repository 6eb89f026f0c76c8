package errs

import (
    "errors"
    "fmt"

    "github.com/google/uuid"
)

// Common sentinel errors for cross-layer signaling.
var (
    ErrNotFound  = errors.New("not_found")
    ErrForbidden = errors.New("forbidden")
    ErrConflict  = errors.New("conflict")
    ErrInvalid   = errors.New("invalid")
    // ErrUnprocessable is used for semantic validation failures (HTTP 422)
    ErrUnprocessable = errors.New("unprocessable")
    // ErrImmutable indicates an attempt to change immutable fields (e.g. opening balance)
    ErrImmutable = errors.New("immutable")

    // ErrFetch marks a store read failure; callers degrade to an empty state.
    ErrFetch = errors.New("fetch_error")
    // ErrOriginNotFound marks a reversal whose linked title, settlement or transfer is gone.
    ErrOriginNotFound = errors.New("origin_not_found")
    // ErrValidation marks a rejected form field.
    ErrValidation = errors.New("validation_error")
    // ErrConcurrentWrite is returned when the store aborts an atomic transaction
    // because another writer touched the same records.
    ErrConcurrentWrite = errors.New("concurrent_write_conflict")
    // ErrSuperseded is returned when a newer load replaced an in-flight one.
    ErrSuperseded = errors.New("superseded")
)

// FetchError wraps a failed store read with the operation that issued it.
type FetchError struct {
    Op  string
    Err error
}

func (e *FetchError) Error() string { return "fetch " + e.Op + ": " + e.Err.Error() }

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// Fetch wraps err as a FetchError; nil stays nil.
func Fetch(op string, err error) error {
    if err == nil { return nil }
    return &FetchError{Op: op, Err: err}
}

// OriginNotFoundError names the missing entity so it can be shown verbatim.
type OriginNotFoundError struct {
    Entity string
    ID     uuid.UUID
}

func (e *OriginNotFoundError) Error() string {
    return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *OriginNotFoundError) Is(target error) bool { return target == ErrOriginNotFound }

// OriginNotFound constructs an OriginNotFoundError.
func OriginNotFound(entity string, id uuid.UUID) error {
    return &OriginNotFoundError{Entity: entity, ID: id}
}

// ValidationError reports a single invalid input field.
type ValidationError struct {
    Field string
    Msg   string
}

func (e *ValidationError) Error() string {
    if e.Field == "" { return e.Msg }
    return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid constructs a ValidationError.
func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }
