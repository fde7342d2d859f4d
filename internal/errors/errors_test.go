package errors_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cull/internal/errors"
)

func TestLoadErrorMessage(t *testing.T) {
	err := &errors.LoadError{
		Position: errors.Position{Filename: "in.ir", Line: 3, Column: 7},
		Message:  "use of undefined value %x",
	}
	assert.Equal(t, "in.ir:3:7: use of undefined value %x", err.Error())

	bare := &errors.LoadError{Message: "cannot open file"}
	assert.Equal(t, "cannot open file", bare.Error())
}

func TestVerificationErrorMessage(t *testing.T) {
	err := &errors.VerificationError{
		Function: "f",
		Problems: []string{"block entry is empty", "phi %r has 1 incoming values for 2 predecessors"},
	}
	assert.Contains(t, err.Error(), "function @f is malformed")
	assert.Contains(t, err.Error(), "block entry is empty")
}

func TestReporterCaretDiagnostic(t *testing.T) {
	source := "define i32 @f() {\nentry:\n  ret i32 %nope\n}\n"
	r := errors.NewReporter("in.ir", source)

	out := r.FormatLoadError(&errors.LoadError{
		Position: errors.Position{Filename: "in.ir", Line: 3, Column: 11},
		Message:  "use of undefined value %nope",
	})

	assert.Contains(t, out, "use of undefined value %nope")
	assert.Contains(t, out, "in.ir:3:11")
	assert.Contains(t, out, "ret i32 %nope")

	// The caret lines up under the offending column.
	caretLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "^") {
			caretLine = line
		}
	}
	assert.NotEmpty(t, caretLine)
}

func TestReporterOutOfRangePosition(t *testing.T) {
	r := errors.NewReporter("in.ir", "one line\n")
	out := r.FormatLoadError(&errors.LoadError{
		Position: errors.Position{Line: 99, Column: 1},
		Message:  "boom",
	})
	assert.Contains(t, out, "boom")
}
