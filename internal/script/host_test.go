package script

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/scate/internal/interp"
)

type fakeInterp struct {
	mu      sync.Mutex
	running bool
	submits []string
}

func (f *fakeInterp) Submit(code string, silent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mode := "echo"
	if silent {
		mode = "silent"
	}
	f.submits = append(f.submits, mode+":"+code)
}

func (f *fakeInterp) IsRunning() bool { return f.running }

type fakeActions struct {
	calls []string
	err   error
}

func (f *fakeActions) Dispatch(name, arg string) error {
	f.calls = append(f.calls, name+"("+arg+")")
	return f.err
}

func newHost(t *testing.T, target Interpreter, acts Dispatcher, code string) *Host {
	t.Helper()
	h := New(target, acts)
	t.Cleanup(func() { _ = h.Close() })
	if code != "" {
		if err := h.DoString(code); err != nil {
			t.Fatalf("DoString: %v", err)
		}
	}
	return h
}

func TestHost_StateHookSubmits(t *testing.T) {
	f := &fakeInterp{}
	h := newHost(t, f, nil, `
function on_state(running)
  if running then
    scate.eval("Server.default.boot;", true)
    scate.eval("1+1;")
  end
end
`)

	h.OnStateChanged(false)
	h.OnStateChanged(true)

	want := []string{"silent:Server.default.boot;", "echo:1+1;"}
	if !reflect.DeepEqual(f.submits, want) {
		t.Errorf("submits = %q, want %q", f.submits, want)
	}
}

func TestHost_OutputAndMessageHooks(t *testing.T) {
	h := newHost(t, &fakeInterp{}, nil, `
seen = {}
function on_output(text) table.insert(seen, "out:" .. text) end
function on_message(kind, text) table.insert(seen, kind .. ":" .. text) end
function joined() return table.concat(seen, "|") end
`)

	h.OnOutput("-> 2\n")
	h.OnMessage(interp.Message{Kind: interp.MessageStopped, Text: "Interpreter stopped."})

	if err := h.DoString(`assert(joined() == "out:-> 2\n|stopped:Interpreter stopped.", joined())`); err != nil {
		t.Errorf("hooks saw wrong events: %v", err)
	}
}

func TestHost_Action(t *testing.T) {
	acts := &fakeActions{}
	h := newHost(t, &fakeInterp{}, acts, "")

	if err := h.DoString(`
local ok, err = scate.action("browse", "SinOsc")
assert(ok == true and err == nil)
`); err != nil {
		t.Fatalf("DoString: %v", err)
	}
	if !reflect.DeepEqual(acts.calls, []string{"browse(SinOsc)"}) {
		t.Errorf("calls = %q", acts.calls)
	}

	acts.err = errors.New("boot-server: interpreter not running")
	if err := h.DoString(`
local ok, err = scate.action("boot-server")
assert(ok == false)
assert(string.find(err, "not running"), err)
`); err != nil {
		t.Errorf("failed action not reported: %v", err)
	}
}

func TestHost_ActionWithoutDispatcher(t *testing.T) {
	h := newHost(t, &fakeInterp{}, nil, "")
	if err := h.DoString(`local ok = scate.action("stop"); assert(ok == false)`); err != nil {
		t.Error(err)
	}
}

func TestHost_Running(t *testing.T) {
	f := &fakeInterp{running: true}
	h := newHost(t, f, nil, "")
	if err := h.DoString(`assert(scate.running() == true)`); err != nil {
		t.Error(err)
	}
	f.running = false
	if err := h.DoString(`assert(scate.running() == false)`); err != nil {
		t.Error(err)
	}
}

func TestHost_Sandbox(t *testing.T) {
	h := newHost(t, &fakeInterp{}, nil, "")
	for _, name := range []string{"io", "os", "debug", "dofile", "loadfile", "load", "loadstring", "require"} {
		if err := h.DoString("assert(" + name + " == nil)"); err != nil {
			t.Errorf("%s is reachable: %v", name, err)
		}
	}
	if err := h.DoString(`assert(string.upper("a") == "A" and math.max(1, 2) == 2)`); err != nil {
		t.Errorf("safe libraries missing: %v", err)
	}
}

func TestHost_Timeout(t *testing.T) {
	h := New(&fakeInterp{}, nil, WithTimeout(50*time.Millisecond))
	defer h.Close()

	start := time.Now()
	err := h.DoString(`while true do end`)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("DoString = %v, want ErrTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced promptly")
	}

	// The state stays usable after a timeout.
	if err := h.DoString(`x = 1`); err != nil {
		t.Errorf("state unusable after timeout: %v", err)
	}
}

func TestHost_HookErrorsAreContained(t *testing.T) {
	f := &fakeInterp{}
	h := newHost(t, f, nil, `
function on_output(text) error("bad hook") end
function on_state(running) scate.eval("ok") end
`)
	h.OnOutput("x")
	h.OnStateChanged(true)
	if len(f.submits) != 1 {
		t.Errorf("submits = %q", f.submits)
	}
}

func TestHost_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.lua")
	if err := os.WriteFile(path, []byte(`function on_state(r) scate.eval("loaded", true) end`), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &fakeInterp{}
	h := newHost(t, f, nil, "")
	if err := h.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !h.HasHook(HookState) || h.HasHook(HookOutput) {
		t.Error("HasHook mismatch")
	}
	h.OnStateChanged(true)
	if !reflect.DeepEqual(f.submits, []string{"silent:loaded"}) {
		t.Errorf("submits = %q", f.submits)
	}

	if err := h.LoadFile(filepath.Join(t.TempDir(), "missing.lua")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.lua")
	_ = os.WriteFile(bad, []byte("function ("), 0o644)
	if err := h.LoadFile(bad); err == nil || !strings.Contains(err.Error(), "bad.lua") {
		t.Errorf("syntax error not reported with file name: %v", err)
	}
}

func TestHost_Close(t *testing.T) {
	h := New(&fakeInterp{}, nil)
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := h.DoString("x = 1"); !errors.Is(err, ErrClosed) {
		t.Errorf("DoString after Close = %v", err)
	}
	h.OnOutput("ignored")
	if h.HasHook(HookOutput) {
		t.Error("closed host reports hooks")
	}
}

var _ interp.MessageObserver = (*Host)(nil)
