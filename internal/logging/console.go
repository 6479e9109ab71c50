package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Style selects how a console message is decorated.
type Style string

const (
	StyleDefault Style = "default"
	StyleHeader  Style = "header"
	StyleInfo    Style = "info"
	StyleSuccess Style = "success"
	StyleWarning Style = "warning"
	StyleError   Style = "error"
)

// Palette, as 256-color codes.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
)

// Console is the user-facing output of codx. Colors are applied only when
// the destination is a terminal that supports them.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	verbose  bool
	markdown bool

	header  lipgloss.Style
	info    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	debug   lipgloss.Style
	dim     lipgloss.Style
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithVerbose enables Debug output.
func WithVerbose(v bool) ConsoleOption {
	return func(c *Console) { c.verbose = v }
}

// WithMarkdown renders Markdown through glamour instead of printing it raw.
func WithMarkdown(v bool) ConsoleOption {
	return func(c *Console) { c.markdown = v }
}

// NewConsole writes regular output to out and errors to errOut.
func NewConsole(out, errOut io.Writer, opts ...ConsoleOption) *Console {
	r := lipgloss.NewRenderer(out)
	c := &Console{
		out:     out,
		errOut:  errOut,
		header:  r.NewStyle().Bold(true).Foreground(colorCyan),
		info:    r.NewStyle().Foreground(colorBlue),
		success: r.NewStyle().Foreground(colorGreen),
		warning: r.NewStyle().Foreground(colorYellow),
		failure: lipgloss.NewRenderer(errOut).NewStyle().Foreground(colorRed),
		debug:   r.NewStyle().Foreground(colorGreen).Faint(true),
		dim:     r.NewStyle().Foreground(colorDim),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verbose reports whether debug output is enabled.
func (c *Console) Verbose() bool { return c.verbose }

// Message prints msg decorated with style; unknown styles print plainly.
func (c *Console) Message(msg string, style Style) {
	switch style {
	case StyleHeader:
		c.Header(msg)
	case StyleInfo:
		c.Info(msg)
	case StyleSuccess:
		c.Success(msg)
	case StyleWarning:
		c.Warning(msg)
	case StyleError:
		c.Error(msg)
	default:
		c.println(c.out, msg)
	}
}

func (c *Console) Header(msg string)  { c.println(c.out, c.header.Render("# "+msg)) }
func (c *Console) Info(msg string)    { c.println(c.out, c.info.Render("ℹ ")+msg) }
func (c *Console) Success(msg string) { c.println(c.out, c.success.Render("✓ ")+msg) }
func (c *Console) Warning(msg string) { c.println(c.out, c.warning.Render("⚠ ")+msg) }
func (c *Console) Error(msg string)   { c.println(c.errOut, c.failure.Render("✗ ")+msg) }

// Debug prints only in verbose mode.
func (c *Console) Debug(msg string) {
	if !c.verbose {
		return
	}
	c.println(c.out, c.debug.Render("🔍 "+msg))
}

// Title prints text underlined to its display width.
func (c *Console) Title(text string) {
	width := runewidth.StringWidth(text)
	c.println(c.out, c.header.Render(text)+"\n"+c.dim.Render(strings.Repeat("─", width)))
}

// Field prints an aligned "label: value" line; empty values are skipped.
func (c *Console) Field(label, value string, labelWidth int) {
	if value == "" {
		return
	}
	pad := labelWidth - runewidth.StringWidth(label)
	if pad < 0 {
		pad = 0
	}
	c.println(c.out, c.dim.Render(label+":")+strings.Repeat(" ", pad+1)+value)
}

// DetailWidth is the label width Detail pads to.
const DetailWidth = 24

// Detail prints a "label....... : value" line with the label padded with
// dots to DetailWidth. Empty values are skipped.
func (c *Console) Detail(label, value string) {
	if value == "" {
		return
	}
	if pad := DetailWidth - runewidth.StringWidth(label); pad > 0 {
		label += strings.Repeat(".", pad)
	}
	c.println(c.out, label+" : "+c.dim.Render(value))
}

// Markdown prints md, rendered through glamour when enabled. Rendering
// failures fall back to the raw text.
func (c *Console) Markdown(md string) {
	c.println(c.out, c.RenderMarkdown(md))
}

// RenderMarkdown returns md as Markdown would print it.
func (c *Console) RenderMarkdown(md string) string {
	if !c.markdown || strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func (c *Console) println(w io.Writer, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(w, s)
}
