package actions

import "errors"

// Action errors.
var (
	// ErrUnknownAction indicates no action is registered under the name.
	ErrUnknownAction = errors.New("actions: unknown action")

	// ErrDisabled indicates the action needs a running interpreter.
	ErrDisabled = errors.New("actions: interpreter not running")

	// ErrMissingArgument indicates the action needs an argument.
	ErrMissingArgument = errors.New("actions: missing argument")

	// ErrDuplicateAction indicates the name is already registered.
	ErrDuplicateAction = errors.New("actions: duplicate action")

	// ErrInvalidAction indicates an action without a name or body.
	ErrInvalidAction = errors.New("actions: invalid action")
)
