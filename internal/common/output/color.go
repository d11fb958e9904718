package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// CountColor picks the color for a summary counter: dim when zero,
// otherwise the given color.
func CountColor(n int, c *color.Color) *color.Color {
	if n == 0 {
		return Dim
	}
	return c
}

// PrintSuccess prints a success message to stderr
func PrintSuccess(format string, args ...interface{}) {
	Success.Fprintf(os.Stderr, "✓ "+format+"\n", args...)
}

// PrintWarning prints a warning message to stderr
func PrintWarning(format string, args ...interface{}) {
	Warning.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message to stderr
func PrintInfo(format string, args ...interface{}) {
	Info.Fprintf(os.Stderr, "→ "+format+"\n", args...)
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}

// Sprint returns a colored string without printing
func Sprint(c *color.Color, a ...interface{}) string {
	return c.Sprint(a...)
}

// KeyValue writes an aligned "key: value" line
func KeyValue(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %-28s %s\n", Header.Sprint(key+":"), value)
}

// Mask hides all but the first character of a secret
func Mask(secret string) string {
	if secret == "" {
		return Dim.Sprint("(unset)")
	}
	r := []rune(secret)
	return string(r[:1]) + strings.Repeat("*", len(r)-1)
}

// Box prints a boxed message to w
func Box(w io.Writer, title string, lines ...string) {
	fmt.Fprintln(w)
	Header.Fprintln(w, "┌─ "+title+" ─")
	for _, line := range lines {
		fmt.Fprintln(w, "│  "+line)
	}
	Header.Fprintln(w, "└────────────────")
}
