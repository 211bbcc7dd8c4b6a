package core

import "errors"

// Error codes sent to clients.
const (
	ErrCodeValidation  = "validation_error"
	ErrCodeAuthFailed  = "auth_failed"
	ErrCodeNotFound    = "not_found"
	ErrCodeBadRequest  = "bad_request"
	ErrCodeRateLimited = "rate_limited"
)

var (
	// ErrUnknownSender is returned when a connection has no registry entry,
	// typically because it disconnected while a command was in flight.
	ErrUnknownSender = errors.New("unknown sender")
	// ErrInvalidToken is the error a TokenResolver returns for rejected tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

var (
	errNotFound   = coreError(ErrCodeNotFound, "User not found.")
	errAuthFailed = coreError(ErrCodeAuthFailed, "Authentication failed")
)
