package filestore

import (
	"errors"
	"fmt"
)

// ErrorCode is the result kind of a file store operation.
//
// Every operation returns a plain error; a nil error is OK and any failure
// is a *StoreError carrying one of these codes. Use CodeOf to map an error
// back to its code.
type ErrorCode int

const (
	// OK means the operation succeeded.
	OK ErrorCode = iota

	// ErrInvalidArgument means the arguments are unusable, e.g. encryption and
	// compression requested together or an empty name.
	ErrInvalidArgument

	// ErrInvalidPath means the target directory does not exist or the path is malformed.
	ErrInvalidPath

	// ErrNotRegistered means the logical name is unknown to the store.
	ErrNotRegistered

	// ErrFileCorrupted means the file's current hash does not match its witness,
	// or its encoded bytes can no longer be decoded.
	ErrFileCorrupted

	// ErrFileAlreadyExists means the target path or name is already taken.
	ErrFileAlreadyExists

	// ErrFileDoesNotExist means the backing file of a registered name is gone.
	ErrFileDoesNotExist

	// ErrHashingNotEnabled means an integrity check was requested for a file
	// that was created without hashing.
	ErrHashingNotEnabled

	// ErrStorageFailure wraps an unexpected failure of the content or metadata backend.
	ErrStorageFailure
)

func (c ErrorCode) String() string {
	switch c {
	case OK:
		return "OK"
	case ErrInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrInvalidPath:
		return "INVALID_PATH"
	case ErrNotRegistered:
		return "NOT_REGISTERED"
	case ErrFileCorrupted:
		return "FILE_CORRUPTED"
	case ErrFileAlreadyExists:
		return "FILE_ALREADY_EXISTS"
	case ErrFileDoesNotExist:
		return "FILE_DOES_NOT_EXIST"
	case ErrHashingNotEnabled:
		return "HASHING_NOT_ENABLED"
	case ErrStorageFailure:
		return "STORAGE_FAILURE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(c))
	}
}

// StoreError is the error type returned by every Store operation.
type StoreError struct {
	// Code is the result kind
	Code ErrorCode

	// Message is a human-readable description
	Message string

	// Name is the logical file name involved, if any
	Name string

	// Err is the underlying backend error, if any
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Code.String()
	if e.Name != "" {
		msg += " " + e.Name
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying backend error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches any *StoreError with the same code, so
//
//	errors.Is(err, &filestore.StoreError{Code: filestore.ErrNotRegistered})
//
// works regardless of message or name.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	return ok && t.Code == e.Code
}

// CodeOf returns the code carried by err. nil maps to OK and errors that
// did not come from a Store map to ErrStorageFailure.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return OK
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrStorageFailure
}

func newError(code ErrorCode, name, format string, args ...any) *StoreError {
	return &StoreError{Code: code, Name: name, Message: fmt.Sprintf(format, args...)}
}

func storageFailure(name, op string, err error) *StoreError {
	return &StoreError{Code: ErrStorageFailure, Name: name, Message: op, Err: err}
}
