package interp

import (
	"errors"
	"fmt"

	"github.com/dshills/scate/internal/process"
)

// Sentinel errors carried by diagnostics.
var (
	// ErrNotRunning is reported when code is submitted, or a stop is
	// requested, while no interpreter is running.
	ErrNotRunning = errors.New("interpreter not running")

	// ErrAlreadyRunning is reported by Start while an interpreter exists.
	ErrAlreadyRunning = errors.New("interpreter already running")

	// ErrLaunch is reported when the interpreter cannot be spawned.
	ErrLaunch = errors.New("interpreter launch failed")

	// ErrTermination is reported when the interpreter cannot be stopped
	// gracefully.
	ErrTermination = errors.New("interpreter termination failed")

	// ErrUnexpectedExit is reported when the interpreter exits without a
	// stop request.
	ErrUnexpectedExit = errors.New("interpreter exited unexpectedly")

	// ErrClosed is returned by Await once the supervisor is closed.
	ErrClosed = errors.New("supervisor closed")
)

// MessageKind classifies a system diagnostic.
type MessageKind int

const (
	MessageInfo MessageKind = iota
	MessageStopped
	MessageLaunchFailure
	MessageNotRunning
	MessageUnexpectedExit
	MessageTerminationFailure
	MessageAlreadyRunning
)

func (k MessageKind) String() string {
	switch k {
	case MessageInfo:
		return "info"
	case MessageStopped:
		return "stopped"
	case MessageLaunchFailure:
		return "launch-failure"
	case MessageNotRunning:
		return "not-running"
	case MessageUnexpectedExit:
		return "unexpected-exit"
	case MessageTerminationFailure:
		return "termination-failure"
	case MessageAlreadyRunning:
		return "already-running"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// Message is a diagnostic produced by the supervisor rather than by the
// interpreter.
type Message struct {
	Kind MessageKind
	Text string
	Err  error

	// Status is the exit status for Stopped and UnexpectedExit messages.
	Status process.ExitStatus
}

// IsError reports whether the message describes a failure.
func (m Message) IsError() bool {
	switch m.Kind {
	case MessageInfo, MessageStopped:
		return false
	default:
		return true
	}
}

// Output renders the message the way it appears in the output stream for
// observers that do not handle messages themselves.
func (m Message) Output() string {
	return "\n" + m.Text + "\n\n"
}

func (m Message) String() string {
	return m.Kind.String() + ": " + m.Text
}

func notRunningMessage() Message {
	return Message{
		Kind: MessageNotRunning,
		Text: "ERROR: Interpreter is not running!",
		Err:  ErrNotRunning,
	}
}

func alreadyRunningMessage(st State) Message {
	text := "WARNING: Interpreter is already running."
	if st == StateStarting {
		text = "WARNING: Interpreter is already starting."
	}
	return Message{Kind: MessageAlreadyRunning, Text: text, Err: ErrAlreadyRunning}
}

func launchFailureMessage(params LaunchParams, err error) Message {
	return Message{
		Kind: MessageLaunchFailure,
		Text: fmt.Sprintf("ERROR: Could not start the interpreter (%s): %v", params, err),
		Err:  fmt.Errorf("%w: %w", ErrLaunch, err),
	}
}

// exitMessage describes a confirmed exit. A requested stop is reported
// as such whatever the status; anything else is unexpected.
func exitMessage(status process.ExitStatus, requested bool) Message {
	if requested {
		return Message{Kind: MessageStopped, Text: "Interpreter stopped.", Status: status}
	}

	m := Message{Kind: MessageUnexpectedExit, Status: status}
	switch {
	case status.Signaled:
		m.Text = fmt.Sprintf("ERROR: Interpreter crashed (%s)!", status)
	case status.Success():
		m.Text = "Interpreter exited."
	default:
		m.Text = fmt.Sprintf("ERROR: Interpreter exited with %s.", status)
	}
	m.Err = fmt.Errorf("%w: %s", ErrUnexpectedExit, status)
	return m
}
