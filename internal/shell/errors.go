package shell

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Error taxonomy. Handlers wrap one of these kinds into every failure so
// tests and callers can match with errors.Is while users still see a
// one-line message. None of these ever propagate past the dispatcher.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrAlreadyExists    = errors.New("already exists")
	ErrNotEmpty         = errors.New("not empty")
	ErrNotADirectory    = errors.New("not a directory")
	ErrIsADirectory     = errors.New("is a directory")
	ErrPermissionDenied = errors.New("permission denied")
	ErrProvider         = errors.New("provider error")
)

// cmdError pairs a taxonomy kind with the user-visible message.
type cmdError struct {
	kind error
	msg  string
}

func (e *cmdError) Error() string { return e.msg }
func (e *cmdError) Unwrap() error { return e.kind }

// failf builds a command error of the given kind with a formatted message.
func failf(kind error, format string, args ...any) error {
	return &cmdError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// pathError maps an OS error on path to a taxonomy error with a message
// in the interpreter's voice. what is the noun used in the message
// ("File", "Directory").
func pathError(err error, what, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return failf(ErrNotFound, "%s not found: %s", what, path)
	case errors.Is(err, fs.ErrPermission):
		return failf(ErrPermissionDenied, "Permission denied: %s", path)
	case errors.Is(err, fs.ErrExist):
		return failf(ErrAlreadyExists, "%s already exists: %s", what, path)
	case errors.Is(err, syscall.ENOTEMPTY):
		return failf(ErrNotEmpty, "Directory not empty: %s", path)
	case errors.Is(err, syscall.ENOTDIR):
		return failf(ErrNotADirectory, "Not a directory: %s", path)
	case errors.Is(err, syscall.EISDIR):
		return failf(ErrIsADirectory, "Is a directory: %s", path)
	default:
		return &cmdError{kind: err, msg: fmt.Sprintf("Error: %v", err)}
	}
}
