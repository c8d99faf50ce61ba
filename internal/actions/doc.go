// Package actions provides the named commands a host binds to keys,
// menus or command lines: interpreter lifecycle, sound server control,
// GUI kit selection and code evaluation.
//
// Every action runs against an Interpreter, normally an
// *interp.Supervisor. Actions that talk to the interpreter are disabled
// while it is not running; a host can query Enabled to grey them out.
//
// # Usage
//
//	reg := actions.Default(sup, actions.WithSwingOSCProgram(store.SwingOSCProgram))
//	if err := reg.Dispatch("boot-server", ""); err != nil {
//	    fmt.Println(err)
//	}
package actions
