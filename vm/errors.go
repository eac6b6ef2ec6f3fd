package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Execution faults
// ---------------------------------------------------------------------------
//
// All faults are fatal: Step returns them, Run propagates them unchanged,
// and the run cannot be resumed. There is no instruction-level catch
// mechanism. Faults are plain error values so embedders can inspect them
// with errors.As.

// ErrHalted is returned by Step when the instruction pointer has already
// run past the end of the instruction sequence. Halted is terminal; use
// Running to check before single-stepping.
var ErrHalted = errors.New("vm: halted")

// StackUnderflowError indicates a pop on an empty operand stack.
type StackUnderflowError struct {
	Op Opcode // the instruction that attempted the pop
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("vm: stack underflow in %s", e.Op)
}

// InvalidJumpTargetError indicates a JUMP whose computed pointer cannot be
// represented.
type InvalidJumpTargetError struct {
	From   int // pointer before the jump
	Offset int // the jump's operand
}

func (e *InvalidJumpTargetError) Error() string {
	return fmt.Sprintf("vm: jump from %d by %+d is out of bounds", e.From, e.Offset)
}

// UnboundGlobalError indicates a GET_GLOBAL for a name with no current
// binding.
type UnboundGlobalError struct {
	Name string
}

func (e *UnboundGlobalError) Error() string {
	return fmt.Sprintf("vm: undefined global %q", e.Name)
}

// TypeMismatchError indicates arithmetic on a variant combination with no
// defined rule. Left and Right carry the offending operands' type tags.
type TypeMismatchError struct {
	Op    Opcode
	Left  string
	Right string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("vm: cannot apply %s to '%s' and '%s'", e.Op, e.Left, e.Right)
}

// InvalidConstantError indicates an instruction referencing a constant
// pool index outside the pool. Pool indices are the producer's
// responsibility and are not validated at construction time.
type InvalidConstantError struct {
	Op    Opcode
	Index int
	Len   int
}

func (e *InvalidConstantError) Error() string {
	return fmt.Sprintf("vm: %s references constant %d of %d", e.Op, e.Index, e.Len)
}

// UnknownOpcodeError indicates a fetch of an instruction whose opcode is
// not in the instruction set. Reachable only through hand-built or
// corrupted programs.
type UnknownOpcodeError struct {
	Op Opcode
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("vm: unknown opcode %s", e.Op)
}
