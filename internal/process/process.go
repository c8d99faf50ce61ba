package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
)

// State represents the state of a process.
type State int32

const (
	// StateCreated indicates the process has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the process is currently running.
	StateRunning
	// StateExited indicates the process has exited on its own or with an error.
	StateExited
	// StateKilled indicates the process was terminated by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// ExitStatus describes how a process ended.
type ExitStatus struct {
	// Code is the exit code, or -1 when the process was signaled or the
	// wait itself failed.
	Code int

	// Signaled is true when the process was terminated by a signal.
	Signaled bool

	// Signal is the terminating signal when Signaled is true.
	Signal syscall.Signal

	// Err is the error returned by Wait, if any.
	Err error
}

// Success reports whether the process exited with status 0.
func (s ExitStatus) Success() bool {
	return !s.Signaled && s.Code == 0 && s.Err == nil
}

// String returns a short description such as "exit status 1" or
// "signal: interrupt".
func (s ExitStatus) String() string {
	switch {
	case s.Signaled:
		return "signal: " + s.Signal.String()
	case s.Code >= 0:
		return fmt.Sprintf("exit status %d", s.Code)
	case s.Err != nil:
		return s.Err.Error()
	default:
		return "unknown exit"
	}
}

// Process is a child process running in its own process group with a
// piped stdin and a single output pipe carrying both stdout and stderr.
//
// Signals sent through Process reach the whole group, so grandchildren
// spawned by the child are included. Process is safe for concurrent use.
type Process struct {
	// ID is the unique identifier for this process.
	ID string

	// Name is a human-readable name for the process.
	Name string

	// Cmd is the underlying exec.Cmd.
	Cmd *exec.Cmd

	// Stdin writes to the process's standard input.
	Stdin io.WriteCloser

	// Output reads the process's combined stdout and stderr.
	Output io.ReadCloser

	done     chan struct{}
	state    atomic.Int32
	status   ExitStatus
	mu       sync.RWMutex
	waitOnce sync.Once
	closeOut sync.Once
}

// New creates a Process for the given command. The command must not have
// been started and must not have Stdin, Stdout or Stderr set.
func New(name string, cmd *exec.Cmd) *Process {
	p := &Process{
		ID:   uuid.NewString(),
		Name: name,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
	p.state.Store(int32(StateCreated))
	return p
}

// Start launches the process in a new process group and begins waiting
// for it in the background.
func (p *Process) Start() error {
	if p.State() != StateCreated {
		return ErrAlreadyStarted
	}
	if p.Cmd.Stdin != nil || p.Cmd.Stdout != nil || p.Cmd.Stderr != nil {
		return errors.New("process: command stdio already configured")
	}

	stdin, err := p.Cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	// An explicit pipe keeps Wait from blocking on our reads; the read end
	// stays open until Close so late output can still be drained.
	outR, outW, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return fmt.Errorf("create output pipe: %w", err)
	}
	p.Cmd.Stdout = outW
	p.Cmd.Stderr = outW
	setProcessGroup(p.Cmd)

	if err := p.Cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = outR.Close()
		_ = outW.Close()
		return fmt.Errorf("start process: %w", err)
	}
	_ = outW.Close()

	p.Stdin = stdin
	p.Output = outR
	p.state.Store(int32(StateRunning))

	go p.waitLoop()

	return nil
}

// waitLoop waits for the process to exit and records its status.
func (p *Process) waitLoop() {
	p.waitOnce.Do(func() {
		err := p.Cmd.Wait()

		status := ExitStatus{Code: 0}
		state := StateExited
		if err != nil {
			status.Err = err
			status.Code = -1
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				status.Code = exitErr.ExitCode()
				if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
					status.Signaled = true
					status.Signal = ws.Signal()
					state = StateKilled
				}
			}
		}

		p.mu.Lock()
		p.status = status
		p.mu.Unlock()

		p.state.Store(int32(state))
		close(p.done)
	})
}

// State returns the current process state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// IsRunning returns true if the process is currently running.
func (p *Process) IsRunning() bool {
	return p.State() == StateRunning
}

// Done returns a channel that is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitStatus returns how the process ended. Only meaningful after Done
// is closed.
func (p *Process) ExitStatus() ExitStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// PID returns the process ID, or -1 if not started.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Signal sends sig to the process group.
func (p *Process) Signal(sig syscall.Signal) error {
	if !p.IsRunning() {
		return ErrNotRunning
	}
	if err := signalGroup(p.Cmd.Process, sig); err != nil {
		return fmt.Errorf("signal %s to group %d: %w", sig, p.PID(), err)
	}
	return nil
}

// Interrupt sends SIGINT to the process group.
func (p *Process) Interrupt() error {
	return p.Signal(syscall.SIGINT)
}

// Kill sends SIGKILL to the process group.
func (p *Process) Kill() error {
	return p.Signal(syscall.SIGKILL)
}

// KillGroup sends SIGKILL to the process group even after the leader has
// exited, reaching descendants that outlived it. A group that no longer
// exists is not an error.
func (p *Process) KillGroup() error {
	if p.Cmd.Process == nil {
		return ErrNotRunning
	}
	err := signalGroup(p.Cmd.Process, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return fmt.Errorf("kill group %d: %w", p.PID(), err)
}

// CloseOutput closes the read end of the output pipe, unblocking any
// pending reader.
func (p *Process) CloseOutput() error {
	var err error
	p.closeOut.Do(func() {
		if p.Output != nil {
			err = p.Output.Close()
		}
	})
	return err
}

// Close releases the stdin and output pipes. It does not kill the process.
func (p *Process) Close() error {
	var errs []error

	if p.Stdin != nil {
		if err := p.Stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("close stdin: %w", err))
		}
	}
	if err := p.CloseOutput(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("close output: %w", err))
	}

	return errors.Join(errs...)
}

// Sentinel errors for the process package.
var (
	// ErrNotRunning is returned when signalling a process that is not running.
	ErrNotRunning = errors.New("process not running")

	// ErrAlreadyStarted is returned when starting a process twice.
	ErrAlreadyStarted = errors.New("process already started")
)
