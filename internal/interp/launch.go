package interp

import (
	"strings"
	"time"

	"github.com/dshills/scate/internal/config"
)

const (
	// DefaultExecutable is launched when no executable is configured.
	DefaultExecutable = "sclang"

	// SessionTag identifies this front end to the interpreter (-i flag).
	SessionTag = "scate"

	// DefaultStopTimeout is how long Stop waits after interrupting the
	// process group before killing it.
	DefaultStopTimeout = config.DefaultStopTimeout

	// DefaultEncoding is the output encoding used when none is set.
	DefaultEncoding = config.DefaultOutputEncoding
)

// LaunchParams is a snapshot of the configuration taken for one launch.
type LaunchParams struct {
	// Executable is the interpreter command. Empty means DefaultExecutable.
	Executable string

	// RuntimeDir is passed with -d when non-empty.
	RuntimeDir string

	// Args are appended after the fixed arguments.
	Args []string

	// OutputEncoding names the encoding of the interpreter's output.
	OutputEncoding string

	// StopTimeout bounds the wait after an interrupt. Zero means
	// DefaultStopTimeout.
	StopTimeout time.Duration
}

// Command returns the executable to launch.
func (p LaunchParams) Command() string {
	if p.Executable == "" {
		return DefaultExecutable
	}
	return p.Executable
}

// Argv returns the arguments that follow the command:
// -i scate [-d dir] [args...].
func (p LaunchParams) Argv() []string {
	argv := []string{"-i", SessionTag}
	if p.RuntimeDir != "" {
		argv = append(argv, "-d", p.RuntimeDir)
	}
	return append(argv, p.Args...)
}

// CommandLine returns the command followed by its arguments.
func (p LaunchParams) CommandLine() []string {
	return append([]string{p.Command()}, p.Argv()...)
}

// String renders the command line for logs and diagnostics.
func (p LaunchParams) String() string {
	return strings.Join(p.CommandLine(), " ")
}

func (p LaunchParams) stopTimeout() time.Duration {
	if p.StopTimeout <= 0 {
		return DefaultStopTimeout
	}
	return p.StopTimeout
}

// ParamsSource supplies launch parameters. It is consulted on every start
// and restart, never cached across launches.
type ParamsSource interface {
	LaunchParams() LaunchParams
}

// ParamsFunc adapts a function to ParamsSource.
type ParamsFunc func() LaunchParams

// LaunchParams calls f.
func (f ParamsFunc) LaunchParams() LaunchParams {
	return f()
}

// StaticParams returns a source that always yields p.
func StaticParams(p LaunchParams) ParamsSource {
	return ParamsFunc(func() LaunchParams { return p })
}

// ConfigParams reads launch parameters from a configuration store.
func ConfigParams(store *config.Store) ParamsSource {
	return ParamsFunc(func() LaunchParams {
		cfg := store.Interpreter()
		return LaunchParams{
			Executable:     cfg.Executable,
			RuntimeDir:     cfg.RuntimeDir,
			Args:           cfg.Args,
			OutputEncoding: cfg.OutputEncoding,
			StopTimeout:    cfg.StopTimeout,
		}
	})
}
