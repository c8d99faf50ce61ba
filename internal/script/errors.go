package script

import "errors"

// Errors for script hosts.
var (
	// ErrClosed is returned when operating on a closed host.
	ErrClosed = errors.New("script: host is closed")

	// ErrTimeout is returned when a script exceeds its time limit.
	ErrTimeout = errors.New("script: execution timeout")
)
