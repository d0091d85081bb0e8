// Package output provides common output formatting utilities.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	ok   = color.New(color.FgGreen, color.Bold).SprintFunc()
	fail = color.New(color.FgRed, color.Bold).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	dim  = color.New(color.Faint).SprintFunc()
)

// DisableColor turns off colored output. Color is already off when stdout
// is not a terminal.
func DisableColor() {
	if !color.NoColor {
		color.NoColor = true
	}
}

// JSON writes indented JSON to w.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table creates a borderless, left-aligned table writing to w.
// Call Render when done appending rows.
func Table(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

// Pass prints a successful check line.
func Pass(w io.Writer, label, format string, args ...any) {
	fmt.Fprintf(w, "%s %-10s %s\n", ok("✓"), label, fmt.Sprintf(format, args...))
}

// Fail prints a failed check line.
func Fail(w io.Writer, label string, err error) {
	fmt.Fprintf(w, "%s %-10s %s\n", fail("✗"), label, err)
}

// Note prints an indented secondary line.
func Note(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", dim(fmt.Sprintf(format, args...)))
}

// Warn prints a warning message to w.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s "+format+"\n", append([]any{warn("Warning:")}, args...)...)
}

// Error prints an error message to w.
func Error(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", fail("Error:"), err)
}
