package errcodes

import (
	"github.com/pkg/errors"
)

// Error is a storage level failure identified by a stable code.
type Error struct {
	Message string
	Code    string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.Message = err.Message
	te.Code = err.Code
	return true
}

// Is matches any error carrying the same code.
func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Code == err.Code
}

// NotFound returns an error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		resource + " not found.",
		"not_found",
	}
}

// AlreadyExists returns an error indicating the resource is already stored.
func AlreadyExists(resource string) error {
	return &Error{
		resource + " already exists.",
		"already_exists",
	}
}

// CodeOf returns the code of err, or "" when err doesn't wrap an *Error.
func CodeOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
