package actions

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/scate/internal/logging"
)

// Interpreter is the part of the supervisor actions drive.
type Interpreter interface {
	Start()
	Stop()
	Restart()
	Submit(code string, silent bool)
	Inform(text string)
	IsRunning() bool
}

// Action is a named command.
type Action struct {
	// Name is the unique identifier, such as "boot-server".
	Name string

	// Description is a one-line help text.
	Description string

	// Arg names the argument the action takes, or is empty when it takes
	// none.
	Arg string

	// NeedsInterpreter disables the action while the interpreter is not
	// running.
	NeedsInterpreter bool

	// Run performs the action.
	Run func(target Interpreter, arg string) error
}

// Registry manages actions by name.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
	target  Interpreter
	log     *logging.Logger

	swingOSCProgram func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		r.log = l.WithComponent("actions")
	}
}

// WithSwingOSCProgram sets where boot-swingosc reads the SwingOSC
// program path. It is called on every boot so configuration reloads
// apply.
func WithSwingOSCProgram(fn func() string) Option {
	return func(r *Registry) {
		r.swingOSCProgram = fn
	}
}

// NewRegistry creates an empty registry dispatching to target.
func NewRegistry(target Interpreter, opts ...Option) *Registry {
	r := &Registry{
		actions:         make(map[string]*Action),
		target:          target,
		log:             logging.Nop(),
		swingOSCProgram: func() string { return "" },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default creates a registry holding the built-in actions.
func Default(target Interpreter, opts ...Option) *Registry {
	r := NewRegistry(target, opts...)
	for _, a := range r.builtins() {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds an action. Names are unique.
func (r *Registry) Register(a Action) error {
	if a.Name == "" || a.Run == nil {
		return ErrInvalidAction
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[a.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, a.Name)
	}
	r.actions[a.Name] = &a
	return nil
}

// Get returns the named action.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[name]
	if !ok {
		return Action{}, false
	}
	return *a, true
}

// Has reports whether an action is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.actions[name]
	return ok
}

// List returns all registered action names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled reports whether the named action can run now.
func (r *Registry) Enabled(name string) bool {
	a, ok := r.Get(name)
	if !ok {
		return false
	}
	return !a.NeedsInterpreter || r.target.IsRunning()
}

// Dispatch runs the named action with arg. Surrounding whitespace in arg
// is ignored.
func (r *Registry) Dispatch(name, arg string) error {
	a, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	if a.NeedsInterpreter && !r.target.IsRunning() {
		return fmt.Errorf("%s: %w", name, ErrDisabled)
	}

	arg = strings.TrimSpace(arg)
	if a.Arg != "" && arg == "" {
		return fmt.Errorf("%s: %w <%s>", name, ErrMissingArgument, a.Arg)
	}

	r.log.Debug("dispatch %s", name)
	if err := a.Run(r.target, arg); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ParseLine splits a command line such as "browse SinOsc" into an action
// name and its argument.
func ParseLine(line string) (name, arg string) {
	line = strings.TrimSpace(line)
	name, arg, _ = strings.Cut(line, " ")
	return name, strings.TrimSpace(arg)
}
