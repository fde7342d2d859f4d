package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats load errors with the offending source line and a caret
// marker underneath.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter creates a reporter for a file's source text.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// FormatLoadError renders a caret-style diagnostic for a load error.
func (r *Reporter) FormatLoadError(err *LoadError) string {
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	pos := err.Position
	if pos.Line <= 0 || pos.Line > len(r.lines) {
		return fmt.Sprintf("%s: %s\n", red("error"), err.Message)
	}

	line := r.lines[pos.Line-1]
	marker := strings.Repeat(" ", max(0, pos.Column-1)) + "^"

	return fmt.Sprintf(
		"%s: %s\n  --> %s:%d:%d\n%4d | %s\n     | %s\n",
		red("error"),
		err.Message,
		r.filename, pos.Line, pos.Column,
		pos.Line, line,
		bold(marker),
	)
}
