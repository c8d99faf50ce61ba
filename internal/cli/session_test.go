//go:build unix

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/scate/internal/interp"
)

const waitTimeout = 5 * time.Second

// fakeInterpreter writes a shell script standing in for sclang and a
// configuration that launches it.
func fakeInterpreter(t *testing.T, body string, extra string) string {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "fake-sclang")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	cfg := fmt.Sprintf("[interpreter]\nexecutable = %q\nstop_timeout = \"1s\"\n%s", exe, extra)
	return writeConfig(t, cfg)
}

func waitFor(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %q; output:\n%s", want, out.String())
}

func TestEval_EchoesCode(t *testing.T) {
	cfgPath := fakeInterpreter(t, "exec cat", "")
	code := filepath.Join(t.TempDir(), "code.scd")
	if err := os.WriteFile(code, []byte("1 + 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, nil, "eval", code, "--config", cfgPath, "--wait", "300ms")
	if err != nil {
		t.Fatalf("eval: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Interpreter starting.",
		"[interpreter running]",
		"1 + 1\f",
		"Interpreter stopped.",
		"[interpreter stopped]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestEval_Stdin(t *testing.T) {
	cfgPath := fakeInterpreter(t, "exec cat", "")

	out, err := execute(t, strings.NewReader("Server.default"), "eval", "-", "--config", cfgPath, "--wait", "300ms", "--silent")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !strings.Contains(out, "Server.default\x1b") {
		t.Errorf("silent submission not echoed by cat:\n%q", out)
	}
}

func TestEval_LaunchFailure(t *testing.T) {
	cfgPath := writeConfig(t, "[interpreter]\nexecutable = \"/nonexistent/sclang\"\n")

	out, err := execute(t, strings.NewReader("1"), "eval", "-", "--config", cfgPath)
	if !errors.Is(err, interp.ErrLaunch) {
		t.Fatalf("err = %v, want ErrLaunch", err)
	}
	if !strings.Contains(out, "ERROR: Could not start the interpreter") {
		t.Errorf("diagnostic missing:\n%s", out)
	}
}

func TestEval_UnexpectedExit(t *testing.T) {
	cfgPath := fakeInterpreter(t, "read line; exit 3", "")

	_, err := execute(t, strings.NewReader("0.exit\n"), "eval", "-", "--config", cfgPath, "--wait", "5s")
	if !errors.Is(err, interp.ErrUnexpectedExit) {
		t.Fatalf("err = %v, want ErrUnexpectedExit", err)
	}
}

func TestEval_CleanExitIsNotAnError(t *testing.T) {
	cfgPath := fakeInterpreter(t, "read line; exit 0", "")

	start := time.Now()
	_, err := execute(t, strings.NewReader("0.exit\n"), "eval", "-", "--config", cfgPath, "--wait", "5s")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("eval waited for the full period after the interpreter exited")
	}
}

func TestRun_InteractiveSession(t *testing.T) {
	cfgPath := fakeInterpreter(t, "exec cat", "")
	in, feed := io.Pipe()

	cmd := NewRootCommand()
	out := &syncBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(in)
	cmd.SetArgs([]string{"run", "--config", cfgPath, "--start", "--no-watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	send := func(line string) {
		t.Helper()
		if _, err := io.WriteString(feed, line+"\n"); err != nil {
			t.Fatalf("write input: %v", err)
		}
	}

	waitFor(t, out, "[interpreter running]")
	send("Synth(\\default)")
	waitFor(t, out, "Synth(\\default)\f")

	send(":no-such-action")
	waitFor(t, out, "unknown action: no-such-action")

	send(":help")
	waitFor(t, out, ":boot-server")

	send(":stop")
	waitFor(t, out, "Interpreter stopped.")

	send("1 + 1")
	waitFor(t, out, "ERROR: Interpreter is not running!")

	send(":quit")
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("run did not end after :quit")
	}
	_ = feed.Close()
}

func TestRun_EndOfInputStopsInterpreter(t *testing.T) {
	cfgPath := fakeInterpreter(t, "exec cat", "[logging]\nlevel = \"debug\"\n")

	out, err := execute(t, strings.NewReader(""), "run", "--config", cfgPath, "--start", "--no-watch")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "Interpreter starting.") {
		t.Errorf("interpreter was not started:\n%s", out)
	}
	if strings.Contains(out, "[interpreter running]") && !strings.Contains(out, "[interpreter stopped]") {
		t.Errorf("interpreter left running:\n%s", out)
	}
}

func TestRun_HooksObserveSession(t *testing.T) {
	dir := t.TempDir()
	hooks := filepath.Join(dir, "hooks.lua")
	src := `
function on_state(running)
  if running then scate.eval("hooked", false) end
end
`
	if err := os.WriteFile(hooks, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := fakeInterpreter(t, "exec cat", fmt.Sprintf("[scripts]\nhooks = %q\n", hooks))

	in, feed := io.Pipe()
	cmd := NewRootCommand()
	out := &syncBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(in)
	cmd.SetArgs([]string{"run", "--config", cfgPath, "--start", "--no-watch"})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	waitFor(t, out, "hooked\f")
	_ = feed.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("run did not end at end of input")
	}
}

func TestRun_BadHooksFile(t *testing.T) {
	cfgPath := fakeInterpreter(t, "exec cat", "[scripts]\nhooks = \"/nonexistent/hooks.lua\"\n")

	_, err := execute(t, strings.NewReader(""), "run", "--config", cfgPath, "--no-watch")
	if err == nil || !strings.Contains(err.Error(), "loading hooks") {
		t.Fatalf("err = %v, want a hooks error", err)
	}
}

func TestRun_HooksFileWithoutHooksWarns(t *testing.T) {
	hooks := filepath.Join(t.TempDir(), "hooks.lua")
	if err := os.WriteFile(hooks, []byte("local x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := fakeInterpreter(t, "exec cat", fmt.Sprintf("[scripts]\nhooks = %q\n", hooks))

	cmd := NewRootCommand()
	logs := &syncBuffer{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(logs)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"run", "--config", cfgPath, "--no-watch"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(logs.String(), "defines none of on_state") {
		t.Errorf("missing warning; logs:\n%s", logs.String())
	}
}
