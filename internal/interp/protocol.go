package interp

// Evaluation terminators appended to submitted code.
const (
	// TerminatorSilent (ESC) evaluates without printing the result.
	TerminatorSilent byte = 0x1B
	// TerminatorEcho (form feed) evaluates and prints the result.
	TerminatorEcho byte = 0x0C
)

// Encode returns the bytes written to the interpreter for code: the code
// followed by exactly one terminator and nothing else.
func Encode(code string, silent bool) []byte {
	term := TerminatorEcho
	if silent {
		term = TerminatorSilent
	}
	b := make([]byte, 0, len(code)+1)
	b = append(b, code...)
	return append(b, term)
}
