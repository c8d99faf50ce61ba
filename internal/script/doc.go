// Package script runs user Lua hooks against the interpreter supervisor.
//
// A hook file may define global functions that the Host calls on
// supervisor events:
//
//	function on_state(running) end      -- interpreter started or stopped
//	function on_output(text) end        -- interpreter output fragment
//	function on_message(kind, text) end -- system diagnostic
//
// and may use the scate module:
//
//	scate.eval(code [, silent])   submit code; silent defaults to false
//	scate.action(name [, arg])    run a named action; returns ok, err
//	scate.running()               whether the interpreter is running
//	scate.log(msg)                write to the application log
//
// Hooks run with a sandboxed standard library (no io, os, debug or file
// loading) and a per-call time limit.
package script
