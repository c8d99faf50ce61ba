// Package console renders interpreter output and supervisor diagnostics
// on a terminal.
package console

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/scate/internal/interp"
)

// Console is an interp.MessageObserver that writes interpreter output
// verbatim and system messages styled on lines of their own. Colors are
// used only when the writer is a color-capable terminal.
type Console struct {
	mu          sync.Mutex
	w           io.Writer
	atLineStart bool

	infoStyle  lipgloss.Style
	errorStyle lipgloss.Style
	stateStyle lipgloss.Style
}

// Option configures a Console.
type Option func(*Console)

// WithRenderer replaces the renderer derived from the writer.
func WithRenderer(r *lipgloss.Renderer) Option {
	return func(c *Console) {
		c.setStyles(r)
	}
}

// New creates a console writing to w.
func New(w io.Writer, opts ...Option) *Console {
	c := &Console{w: w, atLineStart: true}
	c.setStyles(lipgloss.NewRenderer(w))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) setStyles(r *lipgloss.Renderer) {
	c.infoStyle = r.NewStyle().
		Foreground(lipgloss.Color("81"))
	c.errorStyle = r.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196"))
	c.stateStyle = r.NewStyle().
		Foreground(lipgloss.Color("240"))
}

// OnOutput implements interp.Observer.
func (c *Console) OnOutput(text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, text)
	c.atLineStart = strings.HasSuffix(text, "\n")
}

// OnStateChanged implements interp.Observer.
func (c *Console) OnStateChanged(running bool) {
	text := "[interpreter stopped]"
	if running {
		text = "[interpreter running]"
	}
	c.Line(c.stateStyle.Render(text))
}

// OnMessage implements interp.MessageObserver.
func (c *Console) OnMessage(m interp.Message) {
	if m.IsError() {
		c.Line(c.errorStyle.Render(m.Text))
		return
	}
	c.Line(c.infoStyle.Render(m.Text))
}

// Notice prints a host message styled like supervisor information.
func (c *Console) Notice(text string) {
	c.Line(c.infoStyle.Render(text))
}

// Error prints a host error.
func (c *Console) Error(text string) {
	c.Line(c.errorStyle.Render(text))
}

// Line writes s on a line of its own, breaking the current output line
// first if needed.
func (c *Console) Line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.atLineStart {
		_, _ = io.WriteString(c.w, "\n")
	}
	_, _ = io.WriteString(c.w, s+"\n")
	c.atLineStart = true
}
