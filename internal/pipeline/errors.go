package pipeline

import (
	"fmt"
	"time"
)

// TypeMismatchError reports incompatible operand kinds at construction time.
type TypeMismatchError struct {
	Op    Op
	Left  Kind
	Right Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: %s applied to %s and %s", e.Op, e.Left, e.Right)
}

// InvalidRangeError reports bad percentile bounds at construction time.
type InvalidRangeError struct {
	Lo float64
	Hi float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid percentile range [%g, %g]: need 0 <= lo < hi <= 100", e.Lo, e.Hi)
}

// CyclicExpressionError reports a cycle found while wiring terms together.
// Terms built through the typed API are immutable and cannot form cycles;
// the check guards the dynamic Combine path.
type CyclicExpressionError struct{}

func (e *CyclicExpressionError) Error() string {
	return "cyclic expression: term graph must be acyclic"
}

// MissingColumnError reports a source term referencing a field the data
// source does not know for the requested date. Raised at evaluation time.
type MissingColumnError struct {
	Field string
	Date  time.Time
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q for %s", e.Field, e.Date.Format("2006-01-02"))
}
