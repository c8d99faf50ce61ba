package interp

// Observer receives supervisor notifications. Calls are made from the
// supervisor's loop goroutine, one at a time and in order. Observers may
// call any Supervisor method, but must not block for long.
type Observer interface {
	// OnOutput receives a fragment of interpreter output.
	OnOutput(text string)

	// OnStateChanged reports true once the interpreter is running and
	// false once it has stopped. The two alternate strictly.
	OnStateChanged(running bool)
}

// MessageObserver is implemented by observers that want system
// diagnostics separately. Observers without OnMessage receive each
// diagnostic through OnOutput as Message.Output.
type MessageObserver interface {
	Observer
	OnMessage(m Message)
}

// ObserverFuncs builds an Observer from functions. Nil fields are
// ignored; a nil Message falls back to Output.
type ObserverFuncs struct {
	Output       func(text string)
	StateChanged func(running bool)
	Message      func(m Message)
}

// OnOutput implements Observer.
func (f ObserverFuncs) OnOutput(text string) {
	if f.Output != nil {
		f.Output(text)
	}
}

// OnStateChanged implements Observer.
func (f ObserverFuncs) OnStateChanged(running bool) {
	if f.StateChanged != nil {
		f.StateChanged(running)
	}
}

// OnMessage implements MessageObserver.
func (f ObserverFuncs) OnMessage(m Message) {
	if f.Message != nil {
		f.Message(m)
		return
	}
	f.OnOutput(m.Output())
}

type subscription struct {
	id  int
	obs Observer
}
