package interp

import (
	"fmt"

	"github.com/dshills/scate/internal/process"
)

// EventKind identifies a child event.
type EventKind int

const (
	// EventStarted is the child's first liveness signal.
	EventStarted EventKind = iota
	// EventOutput carries a fragment of decoded output.
	EventOutput
	// EventExited is sent once, last, after all output.
	EventExited
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventOutput:
		return "output"
	case EventExited:
		return "exited"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered on a Child's event channel.
type Event struct {
	Kind EventKind

	// Text is set for EventOutput. Fragment boundaries are arbitrary.
	Text string

	// Status is set for EventExited.
	Status process.ExitStatus
}

// Child is a running interpreter process.
//
// Events delivers EventStarted first, then any number of EventOutput,
// then exactly one EventExited, and is closed afterwards. By the time
// EventExited is sent, every resource the child held has been released.
type Child interface {
	// ID identifies the child in logs.
	ID() string

	// PID returns the operating system process ID.
	PID() int

	// Events returns the child's ordered event stream.
	Events() <-chan Event

	// WriteInput queues b for the child's standard input. It never blocks.
	// Writes are delivered in order.
	WriteInput(b []byte) error

	// RequestStop asks the child to terminate (SIGINT to its group).
	RequestStop() error

	// ForceKill kills the child's whole process group.
	ForceKill() error
}

// Spawner launches interpreter processes.
type Spawner interface {
	Spawn(params LaunchParams) (Child, error)
}
