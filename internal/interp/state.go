package interp

import "fmt"

// State is the supervisor's lifecycle state.
type State int32

const (
	// StateStopped means no interpreter process exists.
	StateStopped State = iota
	// StateStarting means a process was spawned but has not yet
	// reported that it is alive.
	StateStarting
	// StateRunning means the interpreter is alive and accepts code.
	StateRunning
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// trigger is an input to the state machine.
type trigger int

const (
	triggerStart trigger = iota
	triggerStarted
	triggerExited
)

func (t trigger) String() string {
	switch t {
	case triggerStart:
		return "start"
	case triggerStarted:
		return "started"
	case triggerExited:
		return "exited"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// transitions is the complete state machine. Stopping is not a state:
// a stop request changes nothing until the exit is confirmed.
var transitions = map[State]map[trigger]State{
	StateStopped: {
		triggerStart: StateStarting,
	},
	StateStarting: {
		triggerStarted: StateRunning,
		triggerExited:  StateStopped,
	},
	StateRunning: {
		triggerExited: StateStopped,
	},
}

// next returns the state reached from 'from' on t, and false when the
// table has no such edge.
func next(from State, t trigger) (State, bool) {
	to, ok := transitions[from][t]
	return to, ok
}

// followUp decides what the loop does after entering Stopped.
type followUp int

const (
	followNone followUp = iota
	followRestart
	followShutdown
)

// afterStopped is evaluated every time the state returns to Stopped.
// Shutdown wins over a pending restart.
func afterStopped(pendingRestart, closing bool) followUp {
	switch {
	case closing:
		return followShutdown
	case pendingRestart:
		return followRestart
	default:
		return followNone
	}
}
