package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/dshills/scate/internal/actions"
	"github.com/dshills/scate/internal/console"
	"github.com/dshills/scate/internal/interp"
	"github.com/dshills/scate/internal/script"
)

// shutdownSlack is added to the configured stop timeout when waiting for
// the interpreter on exit, leaving room for the forced kill.
const shutdownSlack = 2 * time.Second

// session wires a supervisor to the console, the action registry and the
// optional Lua hooks.
type session struct {
	env     *env
	sup     *interp.Supervisor
	actions *actions.Registry
	console *console.Console
	hooks   *script.Host
}

func newSession(e *env, out io.Writer, opts ...interp.Option) (*session, error) {
	opts = append([]interp.Option{interp.WithLogger(e.log)}, opts...)
	sup := interp.New(interp.ConfigParams(e.store), opts...)

	reg := actions.Default(sup,
		actions.WithLogger(e.log),
		actions.WithSwingOSCProgram(e.store.SwingOSCProgram),
	)

	s := &session{
		env:     e,
		sup:     sup,
		actions: reg,
		console: console.New(out),
	}
	sup.Subscribe(s.console)

	if path := e.store.HooksPath(); path != "" {
		h := script.New(sup, reg, script.WithLogger(e.log))
		if err := h.LoadFile(path); err != nil {
			_ = h.Close()
			_ = s.close(context.Background())
			return nil, fmt.Errorf("loading hooks: %w", err)
		}
		if !h.HasHook(script.HookState) && !h.HasHook(script.HookOutput) && !h.HasHook(script.HookMessage) {
			e.log.Warn("%s defines none of %s, %s, %s", path, script.HookState, script.HookOutput, script.HookMessage)
		}
		e.log.Info("hooks loaded from %s", path)
		s.hooks = h
		sup.Subscribe(h)
	}
	return s, nil
}

// closeTimeout bounds the wait for the interpreter on shutdown.
func (s *session) closeTimeout() time.Duration {
	return s.env.store.Interpreter().StopTimeout + shutdownSlack
}

// close stops the interpreter and releases the hooks.
func (s *session) close(ctx context.Context) error {
	err := s.sup.Close(ctx)
	if s.hooks != nil {
		if herr := s.hooks.Close(); herr != nil {
			s.env.log.Warn("closing hooks: %v", herr)
		}
	}
	return err
}

// shutdown closes the session with its own deadline.
func (s *session) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.closeTimeout())
	defer cancel()
	if err := s.close(ctx); err != nil {
		return fmt.Errorf("shutting down interpreter: %w", err)
	}
	return nil
}

// awaitRunning waits for a launch in progress to finish. Code submitted
// while stopped is left to the supervisor to reject.
func (s *session) awaitRunning(ctx context.Context) {
	if err := s.sup.WaitRunning(ctx); err != nil {
		s.env.log.Debug("wait for interpreter: %v", err)
	}
}

// handleLine evaluates code or, for lines starting with ':', dispatches
// an action. It reports whether the session should end.
func (s *session) handleLine(ctx context.Context, line string) (quit bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if !strings.HasPrefix(trimmed, ":") {
		s.awaitRunning(ctx)
		s.sup.Submit(line, false)
		return false
	}

	name, arg := actions.ParseLine(trimmed[1:])
	switch name {
	case "quit", "q":
		return true
	case "help", "actions":
		s.printActions()
		return false
	}
	if err := s.actions.Dispatch(name, arg); err != nil {
		s.console.Error("ERROR: " + err.Error())
	}
	return false
}

func (s *session) printActions() {
	var b strings.Builder
	for _, name := range s.actions.List() {
		a, _ := s.actions.Get(name)
		usage := ":" + name
		if a.Arg != "" {
			usage += " <" + a.Arg + ">"
		}
		fmt.Fprintf(&b, "  %-22s %s", usage, a.Description)
		if !s.actions.Enabled(name) {
			b.WriteString(" (needs a running interpreter)")
		}
		b.WriteByte('\n')
	}
	b.WriteString("  :help                  List actions\n")
	b.WriteString("  :quit                  Stop the interpreter and exit")
	s.console.Notice(b.String())
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
