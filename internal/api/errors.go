package api

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures.
type Kind string

const (
	// KindServer is an HTTP error response; Status, Code, Message and Fields
	// carry whatever the server provided.
	KindServer Kind = "server"
	// KindNetwork means the request was sent but no response arrived. This
	// layer cannot distinguish a timeout from connectivity loss.
	KindNetwork Kind = "network"
	// KindUnknown is anything else, e.g. a serialization failure before the
	// request was sent.
	KindUnknown Kind = "unknown"
)

const (
	msgNetworkError = "Network error. Please check your connection."
	msgServerError  = "Server error. Please try again later."
	msgGenericError = "Something went wrong. Please try again."
)

// ErrSessionExpired marks the terminal refresh failure that tears the session
// down. It is never auto-retried.
var ErrSessionExpired = errors.New("session expired")

// Error is the normalized form every gateway failure takes.
type Error struct {
	Kind    Kind
	Status  int               // HTTP status, server errors only
	Code    string            // server-provided machine code, if any
	Message string            // user-facing message
	Fields  map[string]string // field-level validation errors, if any
	cause   error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		return fmt.Sprintf("api: server error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func serverError(status int, env *envelope) *Error {
	msg := msgServerError
	apiErr := &Error{Kind: KindServer, Status: status, Message: msg}
	if env != nil {
		if env.Message != "" {
			apiErr.Message = env.Message
		}
		apiErr.Code = env.Code
		apiErr.Fields = env.Errors
	}
	return apiErr
}

func networkError(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: msgNetworkError, cause: cause}
}

func unknownError(cause error) *Error {
	return &Error{Kind: KindUnknown, Message: msgGenericError, cause: cause}
}

// AsError unwraps err into the gateway taxonomy.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
