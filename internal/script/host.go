package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/scate/internal/interp"
	"github.com/dshills/scate/internal/logging"
)

// DefaultTimeout bounds a single hook call or file load.
const DefaultTimeout = time.Second

// Hook function names.
const (
	HookState   = "on_state"
	HookOutput  = "on_output"
	HookMessage = "on_message"
)

// Interpreter is the part of the supervisor scripts may drive.
type Interpreter interface {
	Submit(code string, silent bool)
	IsRunning() bool
}

// Dispatcher runs named actions.
type Dispatcher interface {
	Dispatch(name, arg string) error
}

// Host owns a Lua state and forwards supervisor events to its hooks. It
// implements interp.MessageObserver.
//
// gopher-lua states are not goroutine-safe; Host serializes all access.
type Host struct {
	mu      sync.Mutex
	L       *lua.LState
	interp  Interpreter
	actions Dispatcher
	log     *logging.Logger
	timeout time.Duration
	closed  bool
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host's logger. scate.log writes to it.
func WithLogger(l *logging.Logger) Option {
	return func(h *Host) {
		h.log = l.WithComponent("script")
	}
}

// WithTimeout sets the time limit for each hook call.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.timeout = d
	}
}

// New creates a host with the scate module installed and no hooks.
// actions may be nil, in which case scate.action always fails.
func New(target Interpreter, actions Dispatcher, opts ...Option) *Host {
	h := &Host{
		L:       newSandboxedState(),
		interp:  target,
		actions: actions,
		log:     logging.Nop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}

	mod := h.L.SetFuncs(h.L.NewTable(), map[string]lua.LGFunction{
		"eval":    h.luaEval,
		"action":  h.luaAction,
		"running": h.luaRunning,
		"log":     h.luaLog,
	})
	h.L.SetGlobal("scate", mod)
	return h
}

// LoadFile runs a hook file, defining its hooks.
func (h *Host) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("hooks: %w", err)
	}
	return h.run(path, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// DoString runs a chunk of Lua code.
func (h *Host) DoString(code string) error {
	return h.run("chunk", func(L *lua.LState) error {
		return L.DoString(code)
	})
}

// HasHook reports whether the named global function is defined.
func (h *Host) HasHook(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	return h.L.GetGlobal(name).Type() == lua.LTFunction
}

// OnOutput implements interp.Observer.
func (h *Host) OnOutput(text string) {
	h.callHook(HookOutput, lua.LString(text))
}

// OnStateChanged implements interp.Observer.
func (h *Host) OnStateChanged(running bool) {
	h.callHook(HookState, lua.LBool(running))
}

// OnMessage implements interp.MessageObserver.
func (h *Host) OnMessage(m interp.Message) {
	h.callHook(HookMessage, lua.LString(m.Kind.String()), lua.LString(m.Text))
}

// Close releases the Lua state.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.L.Close()
	return nil
}

// callHook calls a hook if it is defined. Hook errors are logged.
func (h *Host) callHook(name string, args ...lua.LValue) {
	err := h.run(name, func(L *lua.LState) error {
		fn := L.GetGlobal(name)
		if fn.Type() != lua.LTFunction {
			return nil
		}
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	})
	if err != nil && !errors.Is(err, ErrClosed) {
		h.log.Warn("hook %s: %v", name, err)
	}
}

// run executes fn on the state under the time limit.
func (h *Host) run(what string, fn func(L *lua.LState) error) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	h.L.SetContext(ctx)
	defer h.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: lua panic: %v", what, r)
		}
	}()

	err = fn(h.L)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%s: %w", what, ErrTimeout)
	}
	return err
}

// scate.eval(code [, silent])
func (h *Host) luaEval(L *lua.LState) int {
	code := L.CheckString(1)
	silent := L.OptBool(2, false)
	h.interp.Submit(code, silent)
	return 0
}

// scate.action(name [, arg]) -> ok, err
func (h *Host) luaAction(L *lua.LState) int {
	name := L.CheckString(1)
	arg := L.OptString(2, "")

	if h.actions == nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString("no actions available"))
		return 2
	}
	if err := h.actions.Dispatch(name, arg); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// scate.running() -> bool
func (h *Host) luaRunning(L *lua.LState) int {
	L.Push(lua.LBool(h.interp.IsRunning()))
	return 1
}

// scate.log(msg)
func (h *Host) luaLog(L *lua.LState) int {
	h.log.Info("%s", L.CheckString(1))
	return 0
}
