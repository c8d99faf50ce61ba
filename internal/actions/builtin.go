package actions

import "strings"

// Names of the built-in actions.
const (
	ActionStart        = "start"
	ActionStop         = "stop"
	ActionRestart      = "restart"
	ActionToggle       = "toggle"
	ActionBootServer   = "boot-server"
	ActionQuitServer   = "quit-server"
	ActionStopAll      = "stop-all"
	ActionBootSwingOSC = "boot-swingosc"
	ActionQuitSwingOSC = "quit-swingosc"
	ActionGUIQt        = "gui-qt"
	ActionGUISwing     = "gui-swing"
	ActionBrowse       = "browse"
	ActionEvaluate     = "evaluate"
)

// submit returns a Run that sends fixed code.
func submit(code string, silent bool) func(Interpreter, string) error {
	return func(t Interpreter, _ string) error {
		t.Submit(code, silent)
		return nil
	}
}

func (r *Registry) builtins() []Action {
	return []Action{
		{
			Name:        ActionStart,
			Description: "Start the interpreter",
			Run:         func(t Interpreter, _ string) error { t.Start(); return nil },
		},
		{
			Name:        ActionStop,
			Description: "Stop the interpreter",
			Run:         func(t Interpreter, _ string) error { t.Stop(); return nil },
		},
		{
			Name:        ActionRestart,
			Description: "Restart the interpreter",
			Run:         func(t Interpreter, _ string) error { t.Restart(); return nil },
		},
		{
			Name:        ActionToggle,
			Description: "Start the interpreter, or stop it when running",
			Run: func(t Interpreter, _ string) error {
				if t.IsRunning() {
					t.Stop()
				} else {
					t.Start()
				}
				return nil
			},
		},
		{
			Name:             ActionBootServer,
			Description:      "Boot the default sound server",
			NeedsInterpreter: true,
			Run:              submit("Server.default.boot;", true),
		},
		{
			Name:             ActionQuitServer,
			Description:      "Quit the default sound server",
			NeedsInterpreter: true,
			Run:              submit("Server.default.quit;", true),
		},
		{
			Name:             ActionStopAll,
			Description:      "Stop all sound processing",
			NeedsInterpreter: true,
			Run: func(t Interpreter, _ string) error {
				t.Submit("thisProcess.stop;", true)
				t.Inform("All processing stopped.")
				return nil
			},
		},
		{
			Name:             ActionBootSwingOSC,
			Description:      "Boot the SwingOSC GUI server",
			NeedsInterpreter: true,
			Run: func(t Interpreter, _ string) error {
				t.Submit(`SwingOSC.program="`+escapeString(r.swingOSCProgram())+`";`, true)
				t.Submit("SwingOSC.default.boot;", true)
				return nil
			},
		},
		{
			Name:             ActionQuitSwingOSC,
			Description:      "Quit the SwingOSC GUI server",
			NeedsInterpreter: true,
			Run:              submit("SwingOSC.default.quit;", true),
		},
		{
			Name:             ActionGUIQt,
			Description:      "Switch the GUI kit to Qt",
			NeedsInterpreter: true,
			Run:              submit("GUI.qt", false),
		},
		{
			Name:             ActionGUISwing,
			Description:      "Switch the GUI kit to SwingOSC",
			NeedsInterpreter: true,
			Run:              submit("GUI.swing", false),
		},
		{
			Name:             ActionBrowse,
			Description:      "Open the class browser for a class",
			Arg:              "class",
			NeedsInterpreter: true,
			Run: func(t Interpreter, class string) error {
				t.Submit(class+".browse;", true)
				return nil
			},
		},
		{
			Name:             ActionEvaluate,
			Description:      "Evaluate code and print the result",
			Arg:              "code",
			NeedsInterpreter: true,
			Run: func(t Interpreter, code string) error {
				t.Submit(code, false)
				return nil
			},
		},
	}
}

// escapeString escapes s for a double-quoted interpreter string literal.
func escapeString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
