package vm

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when emitting into a builder that was finalized.
var ErrClosed = errors.New("instruction sequence already finalized")

// ErrCallDepthExceeded is returned when nested method or block invocations
// exceed the interpreter's configured limit.
var ErrCallDepthExceeded = errors.New("call depth exceeded")

// InvalidOperandError reports an instruction emitted with the wrong number or
// kind of operands.
type InvalidOperandError struct {
	Seq    string // sequence label
	Offset int    // index the instruction would have had
	Op     Opcode
	Reason string
}

func (e *InvalidOperandError) Error() string {
	return fmt.Sprintf("%s@%04d: invalid operand for %s: %s", e.Seq, e.Offset, e.Op, e.Reason)
}

// DuplicateLabelError reports a label bound twice in one sequence.
type DuplicateLabelError struct {
	Seq    string
	Label  string
	Offset int // offset of the first binding
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("%s: label %q already defined at %04d", e.Seq, e.Label, e.Offset)
}

// UnresolvedLabelError reports a jump to a label that was never defined.
type UnresolvedLabelError struct {
	Seq    string
	Label  string
	Offset int // first instruction referencing the label
}

func (e *UnresolvedLabelError) Error() string {
	return fmt.Sprintf("%s@%04d: undefined label %q", e.Seq, e.Offset, e.Label)
}

// UnresolvedVariableError reports a local that is not visible from the
// current scope.
type UnresolvedVariableError struct {
	Seq   string
	Name  string
	Depth int // requested depth, or -1 when the whole chain was searched
}

func (e *UnresolvedVariableError) Error() string {
	if e.Depth >= 0 {
		return fmt.Sprintf("%s: undefined local variable %q at depth %d", e.Seq, e.Name, e.Depth)
	}
	return fmt.Sprintf("%s: undefined local variable %q", e.Seq, e.Name)
}

// UnknownMethodError is returned by call resolvers that cannot dispatch.
type UnknownMethodError struct {
	Receiver Value
	Method   string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("undefined method '%s' for %s", e.Method, Inspect(e.Receiver))
}

// StackUnderflowError reports a pop from an empty operand stack. It always
// indicates a malformed sequence.
type StackUnderflowError struct {
	Seq    string
	Offset int
	Op     Opcode
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("%s@%04d: stack underflow in %s", e.Seq, e.Offset, e.Op)
}

// ExecError wraps a runtime failure with the sequence and instruction that
// raised it. Errors that already carry a location are not wrapped again.
type ExecError struct {
	Seq    string
	Offset int
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s@%04d: %v", e.Seq, e.Offset, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
