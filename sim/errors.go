package sim

import "fmt"

const (
	ErrInvalid  = "INVALID"
	ErrNotFound = "NOT_FOUND"
	ErrExists   = "ALREADY_EXISTS"
	ErrNoSpace  = "NO_SPACE"
)

// Error is the failure type for simulator operations.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
