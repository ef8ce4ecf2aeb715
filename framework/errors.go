package framework

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a slash command failed.
type ErrorKind string

const (
	ErrorArgumentNotAccepted ErrorKind = "ARGUMENT_NOT_ACCEPTED"
	ErrorWorkspaceGone       ErrorKind = "WORKSPACE_GONE"
	ErrorNoActiveTab         ErrorKind = "NO_ACTIVE_TAB"
	ErrorNotAnEditor         ErrorKind = "NOT_AN_EDITOR"
	ErrorNoOutline           ErrorKind = "NO_OUTLINE"
	ErrorUnknownCommand      ErrorKind = "UNKNOWN_COMMAND"
	ErrorMissingArgument     ErrorKind = "MISSING_ARGUMENT"
)

// CommandError is the failure branch of a command invocation. The message is
// shown to the user as is.
type CommandError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *CommandError) Unwrap() error { return e.Err }

// Is matches any CommandError of the same kind, so the sentinels below work
// with errors.Is.
func (e *CommandError) Is(target error) bool {
	var other *CommandError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	ErrArgumentNotAccepted = &CommandError{Kind: ErrorArgumentNotAccepted, Message: "this command does not require argument"}
	ErrWorkspaceGone       = &CommandError{Kind: ErrorWorkspaceGone, Message: "workspace released"}
	ErrNoActiveTab         = &CommandError{Kind: ErrorNoActiveTab, Message: "no active tab"}
	ErrNotAnEditor         = &CommandError{Kind: ErrorNotAnEditor, Message: "active tab is not an editor"}
	ErrNoOutline           = &CommandError{Kind: ErrorNoOutline, Message: "no outline for active tab"}
)

// NewUnknownCommand reports a lookup miss in the registry.
func NewUnknownCommand(name string) *CommandError {
	return &CommandError{Kind: ErrorUnknownCommand, Message: fmt.Sprintf("unknown command /%s", name)}
}

// NewMissingArgument reports an invocation without the argument the command
// requires.
func NewMissingArgument(name string) *CommandError {
	return &CommandError{Kind: ErrorMissingArgument, Message: fmt.Sprintf("/%s requires an argument", name)}
}

// Wrap attaches a cause to a kind while keeping the kind's message.
func Wrap(kind *CommandError, err error) *CommandError {
	return &CommandError{Kind: kind.Kind, Message: kind.Message, Err: err}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind == kind
	}
	return false
}
