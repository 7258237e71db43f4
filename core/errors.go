package core

import (
	"errors"
	"fmt"
)

// Contract errors. They are raised as panics (wrapped in ContractViolation)
// because they indicate a programming error in the presentation layer.
var (
	ErrUndeclaredInput  = errors.New("undeclared input")
	ErrUndeclaredOutput = errors.New("undeclared output")
	ErrPayloadType      = errors.New("payload type mismatch")
	ErrDuplicateName    = errors.New("duplicate port name")
)

// Runtime errors surfaced through error outputs or return values.
var (
	ErrDisposed           = errors.New("engine disposed")
	ErrCollaboratorPanic  = errors.New("collaborator panicked")
	ErrEmptyResult        = errors.New("collaborator returned no result")
	ErrResultHandlerPanic = errors.New("result handler panicked")
	ErrLoggedOut          = errors.New("no user logged in")
)

// ContractViolation is the panic value used for contract errors.
type ContractViolation struct {
	Engine string
	Port   string
	Err    error
	Detail string
}

func (c *ContractViolation) Error() string {
	msg := fmt.Sprintf("viewflow: %s %q on engine %s", c.Err, c.Port, c.Engine)
	if c.Detail != "" {
		msg += ": " + c.Detail
	}
	return msg
}

func (c *ContractViolation) Unwrap() error { return c.Err }

// UserMessenger is implemented by errors that carry a message safe to show
// to end users.
type UserMessenger interface {
	UserMessage() string
}

// ErrorMessage maps err to the text an error output should carry.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var um UserMessenger
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
