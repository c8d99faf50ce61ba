package interp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/scate/internal/logging"
	"github.com/dshills/scate/internal/process"
)

// Supervisor manages one interpreter process at a time.
//
// The Supervisor provides:
//   - Start, Stop and Restart of the interpreter
//   - Code submission with silent or echoing evaluation
//   - Streaming of interpreter output to observers
//   - Process-group termination with SIGKILL escalation
//
// All methods return immediately and are safe for concurrent use. Process
// failures are never returned; they are reported to observers as
// Messages and reflected by IsRunning.
type Supervisor struct {
	params  ParamsSource
	spawner Spawner
	log     *logging.Logger

	state atomic.Int32
	box   *mailbox[func()]
	done  chan struct{}

	closeOnce sync.Once
	nextSubID atomic.Int64

	// Owned by the loop goroutine.
	child          Child
	events         <-chan Event
	stopTimeout    time.Duration
	killTimer      *time.Timer
	killC          <-chan time.Time
	pendingRestart bool
	stopRequested  bool
	announced      bool
	closing        bool
	quit           bool
	subs           []subscription
	waiters        []waiter
	launchErr      error
}

type waiter struct {
	want State
	ch   chan error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the supervisor's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Supervisor) {
		s.log = l.WithComponent("interp")
	}
}

// WithSpawner replaces the default ExecSpawner.
func WithSpawner(sp Spawner) Option {
	return func(s *Supervisor) {
		s.spawner = sp
	}
}

// New creates a Supervisor in the Stopped state. Launch parameters are
// read from params on every start.
func New(params ParamsSource, opts ...Option) *Supervisor {
	s := &Supervisor{
		params: params,
		log:    logging.Nop(),
		box:    newMailbox[func()](),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.spawner == nil {
		s.spawner = &ExecSpawner{Log: s.log}
	}

	go s.loop()
	return s
}

// Start launches the interpreter. It is a no-op with a diagnostic while
// an interpreter is starting or running.
func (s *Supervisor) Start() {
	s.post(s.start)
}

// Stop interrupts the interpreter's process group and cancels any pending
// restart. It is a no-op with a diagnostic while stopped.
func (s *Supervisor) Stop() {
	s.post(func() {
		s.pendingRestart = false
		s.stop()
	})
}

// Restart stops the interpreter and starts it again once the exit is
// confirmed. While stopped it simply starts.
func (s *Supervisor) Restart() {
	s.post(s.restart)
}

// Submit sends code to the interpreter followed by the silent or echoing
// terminator. Code submitted while the interpreter is not running is
// dropped with a diagnostic.
func (s *Supervisor) Submit(code string, silent bool) {
	s.post(func() {
		s.submit(code, silent)
	})
}

// Inform reports an informational message to observers.
func (s *Supervisor) Inform(text string) {
	s.post(func() {
		s.report(Message{Kind: MessageInfo, Text: text})
	})
}

// IsRunning reports whether an interpreter is starting or running.
func (s *Supervisor) IsRunning() bool {
	return s.State() != StateStopped
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Subscribe registers obs and returns a function that unregisters it.
// Subscriptions take effect in order with other requests, so an observer
// subscribed before Start sees every notification of that launch.
func (s *Supervisor) Subscribe(obs Observer) (cancel func()) {
	id := int(s.nextSubID.Add(1))
	s.post(func() {
		s.subs = append(s.subs, subscription{id: id, obs: obs})
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.post(func() {
				for i, sub := range s.subs {
					if sub.id == id {
						s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
						return
					}
				}
			})
		})
	}
}

// Await blocks until the supervisor reaches want. Waiting for Starting or
// Running fails if the launch fails or the interpreter stops first.
func (s *Supervisor) Await(ctx context.Context, want State) error {
	ch := make(chan error, 1)
	if !s.post(func() {
		if s.State() == want {
			ch <- nil
			return
		}
		s.waiters = append(s.waiters, waiter{want: want, ch: ch})
	}) {
		return ErrClosed
	}
	return s.reply(ctx, ch)
}

// WaitRunning waits for a launch requested earlier to finish. It returns
// nil once the interpreter runs, the launch error if the last start
// failed, and ErrNotRunning if the interpreter is stopped for any other
// reason. Unlike Await, it never waits for a start that was not
// requested.
func (s *Supervisor) WaitRunning(ctx context.Context) error {
	ch := make(chan error, 1)
	if !s.post(func() {
		switch s.State() {
		case StateRunning:
			ch <- nil
		case StateStopped:
			if s.launchErr != nil {
				ch <- s.launchErr
				return
			}
			ch <- ErrNotRunning
		default:
			s.waiters = append(s.waiters, waiter{want: StateRunning, ch: ch})
		}
	}) {
		return ErrClosed
	}
	return s.reply(ctx, ch)
}

func (s *Supervisor) reply(ctx context.Context, ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// Close stops the interpreter, waits for its exit and ends the
// supervisor. If ctx ends first, the process group is killed and ctx's
// error is returned. Requests made after Close are ignored.
func (s *Supervisor) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.post(func() {
			s.closing = true
			s.pendingRestart = false
			if s.child == nil {
				s.quit = true
				return
			}
			s.stop()
		})
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.post(s.abandon)
		return ctx.Err()
	}
}

// Done is closed when the supervisor has shut down.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) post(fn func()) bool {
	if !s.box.put(fn) {
		s.log.Debug("supervisor closed, request dropped")
		return false
	}
	return true
}

func (s *Supervisor) loop() {
	defer close(s.done)
	defer s.box.close()

	for !s.quit {
		select {
		case <-s.box.ready():
			for _, fn := range s.box.take() {
				fn()
				if s.quit {
					break
				}
			}

		case ev, ok := <-s.events:
			if !ok {
				s.events = nil
				continue
			}
			s.handle(ev)

		case <-s.killC:
			s.killC = nil
			s.escalate()
		}
	}

	for _, w := range s.waiters {
		w.ch <- ErrClosed
	}
	s.waiters = nil
	s.log.Debug("supervisor loop finished")
}

func (s *Supervisor) start() {
	if st := s.State(); st != StateStopped {
		s.log.Warn("start ignored: interpreter is %s", st)
		s.report(alreadyRunningMessage(st))
		return
	}

	s.report(Message{Kind: MessageInfo, Text: "Interpreter starting."})
	params := s.params.LaunchParams()
	child, err := s.spawner.Spawn(params)
	if err != nil {
		s.log.Error("launch %s: %v", params, err)
		m := launchFailureMessage(params, err)
		s.launchErr = m.Err
		s.report(m)
		s.failWaiters(m.Err, StateStarting, StateRunning)
		return
	}

	s.child = child
	s.launchErr = nil
	s.events = child.Events()
	s.stopTimeout = params.stopTimeout()
	s.stopRequested = false
	s.log.Info("launched %s (pid %d)", params, child.PID())
	s.transition(triggerStart)
}

func (s *Supervisor) stop() {
	if s.child == nil {
		s.report(notRunningMessage())
		return
	}
	if s.stopRequested {
		s.log.Debug("stop already in progress")
		return
	}

	s.log.Info("interrupting interpreter (pid %d)", s.child.PID())
	err := s.child.RequestStop()
	if errors.Is(err, process.ErrNotRunning) {
		// The interpreter exited on its own and its output is draining.
		// The exit is reported with its real status.
		s.log.Debug("interrupt: interpreter already exited")
		return
	}
	s.stopRequested = true
	if err != nil {
		s.log.Warn("interrupt: %v", err)
		s.terminationFailure(fmt.Sprintf("ERROR: Could not interrupt the interpreter: %v", err), err)
		s.kill()
		return
	}

	s.killTimer = time.NewTimer(s.stopTimeout)
	s.killC = s.killTimer.C
}

func (s *Supervisor) restart() {
	if s.child == nil {
		s.start()
		return
	}
	s.pendingRestart = true
	s.stop()
}

func (s *Supervisor) submit(code string, silent bool) {
	if s.State() != StateRunning {
		s.report(notRunningMessage())
		return
	}
	if err := s.child.WriteInput(Encode(code, silent)); err != nil {
		s.log.Warn("submit: %v", err)
		s.report(notRunningMessage())
	}
}

// escalate runs when the stop timeout expires before the exit.
func (s *Supervisor) escalate() {
	if s.child == nil {
		return
	}
	s.log.Warn("interpreter ignored interrupt for %s, killing", s.stopTimeout)
	s.terminationFailure(
		fmt.Sprintf("ERROR: Interpreter did not stop within %s, killing it.", s.stopTimeout),
		fmt.Errorf("no exit after %s", s.stopTimeout),
	)
	s.kill()
}

func (s *Supervisor) kill() {
	if err := s.child.ForceKill(); err != nil && !errors.Is(err, process.ErrNotRunning) {
		s.log.Error("kill: %v", err)
		s.terminationFailure(fmt.Sprintf("ERROR: Could not stop the interpreter: %v", err), err)
	}
}

func (s *Supervisor) terminationFailure(text string, err error) {
	s.report(Message{
		Kind: MessageTerminationFailure,
		Text: text,
		Err:  fmt.Errorf("%w: %w", ErrTermination, err),
	})
}

// abandon gives up on a graceful shutdown. The child's remaining events
// are drained in the background so its goroutines can finish.
func (s *Supervisor) abandon() {
	if s.child != nil {
		_ = s.child.ForceKill()
		go func(events <-chan Event) {
			for range events {
			}
		}(s.events)
		s.clearChild()
	}
	s.quit = true
}

func (s *Supervisor) handle(ev Event) {
	switch ev.Kind {
	case EventStarted:
		s.transition(triggerStarted)

	case EventOutput:
		s.emit(func(o Observer) { o.OnOutput(ev.Text) })

	case EventExited:
		requested := s.stopRequested
		s.log.Info("interpreter exited: %s", ev.Status)
		s.clearChild()
		s.report(exitMessage(ev.Status, requested))
		s.transition(triggerExited)
	}
}

func (s *Supervisor) clearChild() {
	if s.killTimer != nil {
		s.killTimer.Stop()
		s.killTimer = nil
	}
	s.killC = nil
	s.child = nil
	s.events = nil
	s.stopRequested = false
}

func (s *Supervisor) transition(t trigger) {
	from := s.State()
	to, ok := next(from, t)
	if !ok {
		s.log.Warn("no transition from %s on %s", from, t)
		return
	}
	s.state.Store(int32(to))
	s.log.Debug("state %s -> %s", from, to)

	switch {
	case to == StateRunning && !s.announced:
		s.announced = true
		s.emit(func(o Observer) { o.OnStateChanged(true) })
	case to == StateStopped && s.announced:
		s.announced = false
		s.emit(func(o Observer) { o.OnStateChanged(false) })
	}

	s.wakeWaiters(to)

	if to != StateStopped {
		return
	}
	switch afterStopped(s.pendingRestart, s.closing) {
	case followShutdown:
		s.quit = true
	case followRestart:
		s.pendingRestart = false
		s.log.Info("restarting interpreter")
		s.start()
	default:
		s.failWaiters(ErrNotRunning, StateStarting, StateRunning)
	}
}

func (s *Supervisor) wakeWaiters(st State) {
	kept := s.waiters[:0]
	for _, w := range s.waiters {
		if w.want == st {
			w.ch <- nil
			continue
		}
		kept = append(kept, w)
	}
	s.waiters = kept
}

func (s *Supervisor) failWaiters(err error, states ...State) {
	kept := s.waiters[:0]
	for _, w := range s.waiters {
		failed := false
		for _, st := range states {
			if w.want == st {
				w.ch <- err
				failed = true
				break
			}
		}
		if !failed {
			kept = append(kept, w)
		}
	}
	s.waiters = kept
}

// report delivers a diagnostic to every observer.
func (s *Supervisor) report(m Message) {
	if m.IsError() {
		s.log.Debug("diagnostic: %s", m)
	}
	s.emit(func(o Observer) {
		if mo, ok := o.(MessageObserver); ok {
			mo.OnMessage(m)
			return
		}
		o.OnOutput(m.Output())
	})
}

// emit calls fn for each observer. A panicking observer is logged and
// does not affect the others.
func (s *Supervisor) emit(fn func(Observer)) {
	for _, sub := range s.subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("observer %d panicked: %v", sub.id, r)
				}
			}()
			fn(sub.obs)
		}()
	}
}
