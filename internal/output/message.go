package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

//nolint:gochecknoglobals // shared color palette
var (
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed, color.Bold)
)

// DisableColor turns off colored status lines, e.g. for NO_COLOR or non-TTY output.
func DisableColor() {
	color.NoColor = true
}

// Info writes an informational line.
func Info(w io.Writer, format string, args ...any) {
	_, _ = infoColor.Fprintf(w, "• %s\n", fmt.Sprintf(format, args...))
}

// Warn writes a warning line.
func Warn(w io.Writer, format string, args ...any) {
	_, _ = warnColor.Fprintf(w, "! %s\n", fmt.Sprintf(format, args...))
}

// Success writes a success line.
func Success(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Failure writes a failure line.
func Failure(w io.Writer, format string, args ...any) {
	_, _ = failColor.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Outcome colors a check outcome: green for CLEAR, yellow for REVIEW and
// red for anything else.
func Outcome(outcome string) string {
	switch outcome {
	case "CLEAR":
		return successColor.Sprint(outcome)
	case "REVIEW":
		return warnColor.Sprint(outcome)
	default:
		return failColor.Sprint(outcome)
	}
}
