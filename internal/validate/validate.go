// Package validate holds the stateless checks applied to inbound chat text
// before it reaches the registry or the message history.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxMessageLength is the longest accepted message body, in characters.
	MaxMessageLength = 100
	// MaxNameLength is the longest accepted display name, in characters.
	MaxNameLength = 10
)

// Field names reported in errors and metrics.
const (
	FieldMessage = "message"
	FieldName    = "name"
)

// ErrValidation matches every *Error returned by this package.
var ErrValidation = errors.New("validation failed")

// Error describes why a value was rejected.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// Is lets callers match with errors.Is(err, ErrValidation).
func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

var (
	v = validator.New()

	messageRule = fmt.Sprintf("required,max=%d", MaxMessageLength)
	nameRule    = fmt.Sprintf("required,max=%d", MaxNameLength)
)

// Message trims raw and checks it is a deliverable message body.
func Message(raw string) (string, error) {
	return check(FieldMessage, "Message", raw, messageRule)
}

// DisplayName trims raw and checks it is an acceptable display name.
func DisplayName(raw string) (string, error) {
	return check(FieldName, "Name", raw, nameRule)
}

func check(field, label, raw, rule string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := v.Var(trimmed, rule); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return "", &Error{Field: field, Reason: reason(field, label, ve[0])}
		}
		return "", fmt.Errorf("validate %s: %w", field, err)
	}
	return trimmed, nil
}

// reason converts a rule failure into the message shown to the client.
func reason(field, label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Invalid %s. %s cannot be empty.", field, label)
	case "max":
		return fmt.Sprintf("Invalid %s. %s cannot be longer than %s characters.", field, label, fe.Param())
	default:
		return fmt.Sprintf("Invalid %s.", field)
	}
}
