// Package interp supervises a single external interpreter process.
//
// A Supervisor launches the interpreter, streams its output to observers,
// submits code over the interpreter's standard input and stops the whole
// process group on request. All state is owned by one loop goroutine:
// public methods post work to an unbounded mailbox and return at once, so
// they may be called from any goroutine, including from inside an
// observer callback.
//
// Observers are notified only from the loop goroutine. Notifications are
// therefore serialized and delivered in the order the child produced
// them, and a child's exit is always reported after its last output.
//
// Code is submitted with a one-byte terminator that selects the
// evaluation mode:
//
//	code + 0x1B  silent evaluation, the result is not printed
//	code + 0x0C  normal evaluation, the result is echoed
//
// The child process itself is abstracted by the Spawner and Child
// interfaces. ExecSpawner implements them with real processes running in
// their own process group.
package interp
