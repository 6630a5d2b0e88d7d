// Package rpc moves tagged interchange documents between a client and a
// plugin over a stream socket. Each frame is a 10-digit zero-padded decimal
// length header followed by one JSON request or response envelope; entity
// values inside params and results travel in their tagged form.
package rpc

import "fmt"

// Wire error codes.
const (
	CodeInvalidArgument = 1
	CodeUnknownMethod   = 2
	CodeUnknownType     = 3
	CodeNotFound        = 4
	CodeExists          = 5
	CodeNoSpace         = 6
	CodeInternal        = 7
)

// Request is one method invocation.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
	ID     uint64         `json:"id"`
}

// Response answers the request with the matching ID. Exactly one of Result
// and Error is meaningful.
type Response struct {
	Result any        `json:"result"`
	Error  *CallError `json:"error,omitempty"`
	ID     uint64     `json:"id"`
}

// CallError is a failure reported by the far side of a call.
type CallError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *CallError) Error() string {
	return fmt.Sprintf("rpc: remote error %d: %s", e.Code, e.Message)
}

func callErrorf(code int, format string, args ...any) *CallError {
	return &CallError{Code: code, Message: fmt.Sprintf(format, args...)}
}
