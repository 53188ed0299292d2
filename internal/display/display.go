package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Display renders colored status lines and the end-of-run summary. Colors
// degrade to plain text when the output is not a terminal or NO_COLOR is set.
type Display struct {
	out            io.Writer
	colorSupported bool
	profile        termenv.Profile
	quiet          bool

	success *color.Color
	warning *color.Color
	failure *color.Color
	heading *color.Color
	detail  *color.Color
}

// New creates a display writing to stdout.
func New(quiet, noColor bool) *Display {
	return NewWithWriter(os.Stdout, quiet, noColor)
}

// NewWithWriter creates a display for an arbitrary writer; colors are only
// enabled for the real stdout terminal.
func NewWithWriter(out io.Writer, quiet, noColor bool) *Display {
	supported := !noColor && detectColorSupport()
	d := &Display{
		out:            out,
		colorSupported: supported,
		profile:        termenv.ColorProfile(),
		quiet:          quiet,
		success:        color.New(color.FgGreen),
		warning:        color.New(color.FgYellow),
		failure:        color.New(color.FgRed, color.Bold),
		heading:        color.New(color.Bold),
		detail:         color.New(color.FgCyan),
	}
	if !supported {
		for _, c := range []*color.Color{d.success, d.warning, d.failure, d.heading, d.detail} {
			c.DisableColor()
		}
	}
	return d
}

func detectColorSupport() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// Width returns the terminal width, falling back to 80 columns.
func (d *Display) Width() int {
	if f, ok := d.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// Successf prints a green success line.
func (d *Display) Successf(format string, args ...interface{}) {
	if d.quiet {
		return
	}
	fmt.Fprintln(d.out, d.success.Sprintf("✓ "+format, args...))
}

// Warnf prints a yellow warning line. Warnings are shown even in quiet mode.
func (d *Display) Warnf(format string, args ...interface{}) {
	fmt.Fprintln(d.out, d.warning.Sprintf("⚠ "+format, args...))
}

// Errorf prints a red failure line.
func (d *Display) Errorf(format string, args ...interface{}) {
	fmt.Fprintln(d.out, d.failure.Sprintf("✗ "+format, args...))
}

// Infof prints a plain informational line.
func (d *Display) Infof(format string, args ...interface{}) {
	if d.quiet {
		return
	}
	fmt.Fprintf(d.out, format+"\n", args...)
}

// Detailf prints a cyan detail line.
func (d *Display) Detailf(format string, args ...interface{}) {
	if d.quiet {
		return
	}
	fmt.Fprintln(d.out, d.detail.Sprintf("  "+format, args...))
}

// Header prints a bold section header with an underline.
func (d *Display) Header(title string) {
	if d.quiet {
		return
	}
	fmt.Fprintln(d.out, d.heading.Sprint(title))
	width := len(title)
	if w := d.Width(); width > w {
		width = w
	}
	fmt.Fprintln(d.out, strings.Repeat("=", width))
}

// KeyValue prints an aligned key/value detail row.
func (d *Display) KeyValue(key, value string) {
	if d.quiet {
		return
	}
	fmt.Fprintf(d.out, "  %-24s %s\n", key+":", value)
}

// HumanCount formats a count with a pluralized noun.
func HumanCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// HumanSize formats a byte count for the summary.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
