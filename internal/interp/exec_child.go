package interp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/dshills/scate/internal/logging"
	"github.com/dshills/scate/internal/process"
)

// DefaultDrainGrace is how long an exited child's output may keep
// flowing before the pipe is closed and the group is killed.
const DefaultDrainGrace = 500 * time.Millisecond

const readBufferSize = 4096

// ExecSpawner launches interpreters as operating system processes, each
// in its own process group, with stdout and stderr merged into a single
// output stream.
type ExecSpawner struct {
	// Log receives process-level debug output. Nil disables logging.
	Log *logging.Logger

	// Env is the child's environment. Nil inherits the current one.
	Env []string

	// Dir is the child's working directory. Empty inherits the current one.
	Dir string

	// DrainGrace overrides DefaultDrainGrace.
	DrainGrace time.Duration
}

// Spawn starts the interpreter described by params.
func (s *ExecSpawner) Spawn(params LaunchParams) (Child, error) {
	enc, err := LookupEncoding(params.OutputEncoding)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(params.Command(), params.Argv()...)
	cmd.Env = s.Env
	cmd.Dir = s.Dir

	proc := process.New(params.Command(), cmd)
	if err := proc.Start(); err != nil {
		return nil, err
	}

	log := s.Log
	if log == nil {
		log = logging.Nop()
	}
	grace := s.DrainGrace
	if grace <= 0 {
		grace = DefaultDrainGrace
	}

	c := &execChild{
		proc:    proc,
		log:     log.WithFields(map[string]any{"child": proc.ID, "pid": proc.PID()}),
		events:  make(chan Event, 16),
		input:   newMailbox[[]byte](),
		decoder: enc.NewDecoder(),
		grace:   grace,
	}
	c.log.Debug("spawned %s", params)

	go c.run()
	go c.writeLoop()

	return c, nil
}

// LookupEncoding resolves an encoding name such as "utf-8", "latin1" or
// "shift_jis". An empty name means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown output encoding %q: %w", name, err)
	}
	return enc, nil
}

type execChild struct {
	proc    *process.Process
	log     *logging.Logger
	events  chan Event
	input   *mailbox[[]byte]
	decoder *encoding.Decoder
	grace   time.Duration
}

func (c *execChild) ID() string           { return c.proc.ID }
func (c *execChild) PID() int             { return c.proc.PID() }
func (c *execChild) Events() <-chan Event { return c.events }

func (c *execChild) WriteInput(b []byte) error {
	if !c.input.put(b) {
		return process.ErrNotRunning
	}
	return nil
}

func (c *execChild) RequestStop() error {
	return c.proc.Interrupt()
}

func (c *execChild) ForceKill() error {
	return c.proc.Kill()
}

// run owns the event channel. Started is sent before the reader begins,
// and Exited only after the reader has finished.
func (c *execChild) run() {
	defer close(c.events)

	c.events <- Event{Kind: EventStarted}

	readDone := make(chan struct{})
	go c.readLoop(readDone)

	<-c.proc.Done()
	c.input.close()
	status := c.proc.ExitStatus()
	c.log.Debug("exited: %s", status)

	select {
	case <-readDone:
	case <-time.After(c.grace):
		// Descendants still hold the pipe open.
		c.log.Debug("output not drained after %s, killing group", c.grace)
		if err := c.proc.KillGroup(); err != nil {
			c.log.Warn("kill orphaned group: %v", err)
		}
		_ = c.proc.CloseOutput()
		<-readDone
	}

	if err := c.proc.Close(); err != nil {
		c.log.Debug("release pipes: %v", err)
	}

	c.events <- Event{Kind: EventExited, Status: status}
}

func (c *execChild) readLoop(done chan<- struct{}) {
	defer close(done)

	r := transform.NewReader(c.proc.Output, c.decoder)
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			c.events <- Event{Kind: EventOutput, Text: string(buf[:n])}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.log.Debug("read output: %v", err)
			}
			return
		}
	}
}

// writeLoop drains queued input into the child's stdin in order. It ends
// when the child exits; remaining input is dropped.
func (c *execChild) writeLoop() {
	for {
		select {
		case <-c.input.ready():
			for _, b := range c.input.take() {
				if _, err := c.proc.Stdin.Write(b); err != nil {
					c.log.Warn("write input: %v", err)
					break
				}
			}
		case <-c.proc.Done():
			return
		}
	}
}
