package interp

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/dshills/scate/internal/process"
)

// fakeChild is a scripted Child. Tests drive its events directly.
type fakeChild struct {
	id     string
	pid    int
	events chan Event

	mu         sync.Mutex
	written    [][]byte
	stops      int
	kills      int
	ignoreStop bool
	exited     bool
}

func (c *fakeChild) ID() string           { return c.id }
func (c *fakeChild) PID() int             { return c.pid }
func (c *fakeChild) Events() <-chan Event { return c.events }

func (c *fakeChild) WriteInput(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return process.ErrNotRunning
	}
	c.written = append(c.written, append([]byte(nil), b...))
	return nil
}

func (c *fakeChild) RequestStop() error {
	c.mu.Lock()
	c.stops++
	ignore := c.ignoreStop
	c.mu.Unlock()
	if !ignore {
		c.exit(process.ExitStatus{Code: -1, Signaled: true, Signal: syscall.SIGINT})
	}
	return nil
}

func (c *fakeChild) ForceKill() error {
	c.mu.Lock()
	c.kills++
	c.mu.Unlock()
	c.exit(process.ExitStatus{Code: -1, Signaled: true, Signal: syscall.SIGKILL})
	return nil
}

func (c *fakeChild) output(text string) {
	c.events <- Event{Kind: EventOutput, Text: text}
}

func (c *fakeChild) exit(status process.ExitStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exited {
		return
	}
	c.exited = true
	c.events <- Event{Kind: EventExited, Status: status}
	close(c.events)
}

func (c *fakeChild) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func (c *fakeChild) counts() (stops, kills int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops, c.kills
}

// fakeSpawner records every launch.
type fakeSpawner struct {
	mu         sync.Mutex
	children   []*fakeChild
	params     []LaunchParams
	fail       error
	ignoreStop bool
	noStarted  bool
}

func (s *fakeSpawner) Spawn(p LaunchParams) (Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = append(s.params, p)
	if s.fail != nil {
		return nil, s.fail
	}
	n := len(s.children) + 1
	c := &fakeChild{
		id:         fmt.Sprintf("child-%d", n),
		pid:        1000 + n,
		events:     make(chan Event, 64),
		ignoreStop: s.ignoreStop,
	}
	if !s.noStarted {
		c.events <- Event{Kind: EventStarted}
	}
	s.children = append(s.children, c)
	return c, nil
}

func (s *fakeSpawner) spawned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.children)
}

func (s *fakeSpawner) child(i int) *fakeChild {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.children[i]
}

// recorder logs every notification in order.
type recorder struct {
	mu     sync.Mutex
	log    []string
	msgs   []Message
	states chan bool
	msgCh  chan Message
	outCh  chan string
}

func newRecorder() *recorder {
	return &recorder{
		states: make(chan bool, 64),
		msgCh:  make(chan Message, 64),
		outCh:  make(chan string, 256),
	}
}

func (r *recorder) OnOutput(text string) {
	r.mu.Lock()
	r.log = append(r.log, "out:"+text)
	r.mu.Unlock()
	r.outCh <- text
}

func (r *recorder) OnStateChanged(running bool) {
	r.mu.Lock()
	r.log = append(r.log, fmt.Sprintf("state:%v", running))
	r.mu.Unlock()
	r.states <- running
}

func (r *recorder) OnMessage(m Message) {
	r.mu.Lock()
	r.log = append(r.log, "msg:"+m.Kind.String())
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
	r.msgCh <- m
}

func (r *recorder) entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *recorder) count(entry string) int {
	n := 0
	for _, e := range r.entries() {
		if e == entry {
			n++
		}
	}
	return n
}

const waitTimeout = 3 * time.Second

func (r *recorder) waitState(t *testing.T, want bool) {
	t.Helper()
	select {
	case got := <-r.states:
		if got != want {
			t.Fatalf("OnStateChanged(%v), want %v; log=%v", got, want, r.entries())
		}
	case <-time.After(waitTimeout):
		t.Fatalf("timeout waiting for OnStateChanged(%v); log=%v", want, r.entries())
	}
}

func (r *recorder) waitMessage(t *testing.T, kind MessageKind) Message {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case m := <-r.msgCh:
			if m.Kind == kind {
				return m
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s message; log=%v", kind, r.entries())
			return Message{}
		}
	}
}

// flush waits until the loop has processed everything posted so far.
func flush(t *testing.T, s *Supervisor) {
	t.Helper()
	done := make(chan struct{})
	if !s.post(func() { close(done) }) {
		t.Fatal("supervisor closed")
	}
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("timeout flushing supervisor loop")
	}
}

var errSpawn = errors.New("exec: \"sclang\": executable file not found in $PATH")
