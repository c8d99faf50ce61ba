// Package process provides child process plumbing for the interpreter
// supervisor.
//
// A Process wraps an exec.Cmd with:
//
//   - a dedicated process group, so signals reach every descendant
//   - a piped stdin and one output pipe shared by stdout and stderr
//   - background waiting with a Done channel and a recorded ExitStatus
//   - a uuid identifier for log correlation
//
// # Usage
//
//	proc := process.New("sclang", exec.Command("sclang", "-i", "scate"))
//	if err := proc.Start(); err != nil {
//	    return err
//	}
//	defer proc.Close()
//
//	go io.Copy(os.Stdout, proc.Output)
//	_ = proc.Interrupt() // SIGINT to the whole group
//	<-proc.Done()
//	fmt.Println(proc.ExitStatus())
//
// # Thread Safety
//
// Process is safe for concurrent use.
package process
