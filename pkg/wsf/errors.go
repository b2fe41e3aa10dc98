package wsf

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a command is terminated for exceeding its
// timeout.
var ErrTimeout = errors.New("command timed out")

// ErrPluginNotFound is returned for a plugin name with no registration.
var ErrPluginNotFound = errors.New("plugin not found")

// Kind classifies plugin failures.
type Kind int

const (
	// KindUser marks bad input from the caller.
	KindUser Kind = iota + 1

	// KindModel marks a misconfigured or failing plugin.
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user error"
	case KindModel:
		return "model error"
	default:
		return "unknown error"
	}
}

// Error is a classified plugin failure.
type Error struct {
	Kind    Kind
	Plugin  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("plugin %s: %s: %s", e.Plugin, e.Kind, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// UserError reports invalid caller input.
func UserError(plugin, message string) *Error {
	return &Error{Kind: KindUser, Plugin: plugin, Message: message}
}

// ModelError reports a plugin failure, wrapping err when given.
func ModelError(plugin, message string, err error) *Error {
	return &Error{Kind: KindModel, Plugin: plugin, Message: message, Err: err}
}

// IsUserError reports whether err is a plugin user error.
func IsUserError(err error) bool { return isKind(err, KindUser) }

// IsModelError reports whether err is a plugin model error.
func IsModelError(err error) bool { return isKind(err, KindModel) }

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
