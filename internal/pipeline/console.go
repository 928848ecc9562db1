package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"upc/internal/modules"
)

// Console palette
const (
	colorSection = lipgloss.Color("#10B981")
	colorMuted   = lipgloss.Color("#9CA3AF")
	colorWarning = lipgloss.Color("#F59E0B")
)

// Console prints human progress output. It is safe for concurrent use.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	section lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
}

// NewConsole creates a console writing to w. Colors are used only when w
// is a terminal.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:       w,
		section: r.NewStyle().Bold(true).Foreground(colorSection),
		muted:   r.NewStyle().Foreground(colorMuted),
		warning: r.NewStyle().Foreground(colorWarning),
	}
}

// DiscardConsole returns a console that prints nothing.
func DiscardConsole() *Console {
	return NewConsole(io.Discard)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, s)
}

// Section prints a section header such as [Compiling].
func (c *Console) Section(title string) {
	c.println(c.section.Render("[" + title + "]"))
}

// Field prints an indented label/value line under a section.
func (c *Console) Field(label, value string) {
	c.println(c.muted.Render("  - " + label + ": " + value))
}

// Line prints a plain line.
func (c *Console) Line(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

// Blank prints an empty line.
func (c *Console) Blank() {
	c.println("")
}

// Done prints a completion line.
func (c *Console) Done(msg string) {
	c.println(c.section.Render(msg))
}

// ModuleReport prints the outcome of one module as it completes.
func (c *Console) ModuleReport(r *modules.Report) {
	head := "Processing " + r.Module + "..."
	if !r.HasWarnings() {
		c.println(head + "OK")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.warning.Render(head+"OK With Warnings (Maybe you didn't pass in the right defines?)"))
	for _, w := range r.Warnings {
		fmt.Fprintln(c.w, c.warning.Render("  - Skipping "+string(w.Reason)+" file: "+w.Path))
	}
}
