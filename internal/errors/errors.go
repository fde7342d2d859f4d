package errors

// Error taxonomy for the optimizer. Only two failure kinds exist: a module
// that cannot be loaded, and an optimized module that fails verification.
// The passes themselves are total over verifier-clean input; anything else
// is a defect and panics.

import (
	"fmt"
	"strings"
)

// Position is a location in a source file.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// LoadError reports malformed or unreadable input. It is fatal and aborts
// the run before any pass executes.
type LoadError struct {
	Position Position
	Message  string
}

func (e *LoadError) Error() string {
	if e.Position.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s",
			e.Position.Filename, e.Position.Line, e.Position.Column, e.Message)
	}
	return e.Message
}

// VerificationError reports structural problems found in the optimized
// module. It is fatal when verification is enabled.
type VerificationError struct {
	Function string
	Problems []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("function @%s is malformed:\n  %s",
		e.Function, strings.Join(e.Problems, "\n  "))
}
