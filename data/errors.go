package data

import "fmt"

const (
	// ErrInvalid marks construction input that is not usable at all,
	// e.g. a required argument missing from a New* call.
	ErrInvalid = "INVALID_ARGUMENT"
	// ErrUnknownType marks a tagged mapping whose tag names no registered entity.
	ErrUnknownType = "UNKNOWN_TYPE"
	// ErrEncode marks a value the encoder cannot represent.
	ErrEncode = "ENCODE_FAILED"
	// ErrConstruct marks a tagged mapping whose field set does not match
	// the target type (missing required fields, extras, or wrong types).
	ErrConstruct = "CONSTRUCT_FAILED"
	// ErrCapability marks a malformed capability hex payload.
	ErrCapability = "CAPABILITY_DECODE"
)

// Error is the failure type for everything in this package. Encode and
// decode fail synchronously and whole: a malformed tagged mapping anywhere
// in a tree fails the entire call.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
