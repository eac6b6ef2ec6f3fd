package vm

import (
	"fmt"
	"io"
	"math"
	"os"
)

// ---------------------------------------------------------------------------
// VM: The banana virtual machine
// ---------------------------------------------------------------------------

// TraceFunc is invoked before each fetched instruction executes. The
// pointer passed is the fetch position, so a trace of a whole run is the
// exact execution order, jump and skip landings included.
type TraceFunc func(ip int, ins Instruction)

// VM executes a Program against an operand stack and a global table. One
// VM owns its program, stack and globals exclusively for the lifetime of
// a run; execution is fully synchronous on a single logical thread.
type VM struct {
	program *Program
	stack   []Value
	globals map[string]Value
	ip      int

	out   io.Writer
	trace TraceFunc
}

// NewVM creates a VM bound to program, with an empty stack, an empty
// global table, the instruction pointer at zero, and output going to
// stdout.
func NewVM(program *Program) *VM {
	return &VM{
		program: program,
		stack:   make([]Value, 0, 64),
		globals: make(map[string]Value),
		out:     os.Stdout,
	}
}

// SetOutput redirects the PRINT sink.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetTrace installs a per-instruction trace hook. A nil fn disables
// tracing.
func (vm *VM) SetTrace(fn TraceFunc) {
	vm.trace = fn
}

// Running reports whether the instruction pointer is still within the
// instruction sequence. Once false the VM is halted for good; there is no
// way to resume.
func (vm *VM) Running() bool {
	return vm.ip < len(vm.program.Ops)
}

// IP returns the current instruction pointer.
func (vm *VM) IP() int {
	return vm.ip
}

// Depth returns the current operand stack depth.
func (vm *VM) Depth() int {
	return len(vm.stack)
}

// Top returns the top of the operand stack without popping it.
func (vm *VM) Top() (Value, bool) {
	if len(vm.stack) == 0 {
		return Value{}, false
	}
	return vm.stack[len(vm.stack)-1], true
}

// Global returns the value bound under name, if any.
func (vm *VM) Global(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// DefineGlobal binds v under name before or between steps. Bindings made
// by SET_GLOBAL use the same table; last write wins.
func (vm *VM) DefineGlobal(name string, v Value) {
	vm.globals[name] = v
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop(op Opcode) (Value, error) {
	if len(vm.stack) == 0 {
		return Value{}, &StackUnderflowError{Op: op}
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// pop2 pops the right operand, then the left. The depth check comes
// first so an underflow leaves the stack untouched.
func (vm *VM) pop2(op Opcode) (lhs, rhs Value, err error) {
	if len(vm.stack) < 2 {
		return Value{}, Value{}, &StackUnderflowError{Op: op}
	}
	rhs = vm.stack[len(vm.stack)-1]
	lhs = vm.stack[len(vm.stack)-2]
	vm.stack = vm.stack[:len(vm.stack)-2]
	return lhs, rhs, nil
}

func (vm *VM) constant(op Opcode, index int) (Value, error) {
	if index < 0 || index >= len(vm.program.Constants) {
		return Value{}, &InvalidConstantError{Op: op, Index: index, Len: len(vm.program.Constants)}
	}
	return vm.program.Constants[index], nil
}

// ---------------------------------------------------------------------------
// Single-step dispatch
// ---------------------------------------------------------------------------

// Step fetches the instruction at the current pointer, executes exactly
// one instruction's effect, then advances the pointer by one. The advance
// is unconditional: a JUMP lands at old ip + offset + 1, and TEST_NOT's
// skip is one extra increment before the generic advance. Both are part
// of the observable contract.
//
// Faults are fatal: a non-nil error means the run is over. An underflow
// is detected before any operand is popped; an arithmetic type fault is
// raised after both operands have been popped, matching the original
// semantics. Step on a halted VM returns ErrHalted.
func (vm *VM) Step() error {
	if vm.ip >= len(vm.program.Ops) {
		return ErrHalted
	}
	ins := vm.program.Ops[vm.ip]
	if vm.trace != nil {
		vm.trace(vm.ip, ins)
	}

	switch ins.Op {
	case OpLoadConstant:
		c, err := vm.constant(ins.Op, ins.Index)
		if err != nil {
			return err
		}
		vm.push(c)

	case OpTestNot:
		v, err := vm.pop(ins.Op)
		if err != nil {
			return err
		}
		if v.IsTruthy() {
			vm.ip++
		}

	case OpJump:
		target, ok := jumpTarget(vm.ip, ins.Offset)
		if !ok {
			return &InvalidJumpTargetError{From: vm.ip, Offset: ins.Offset}
		}
		vm.ip = target

	case OpSetGlobal:
		name, err := vm.constant(ins.Op, ins.Index)
		if err != nil {
			return err
		}
		v, err := vm.pop(ins.Op)
		if err != nil {
			return err
		}
		vm.globals[name.String()] = v

	case OpGetGlobal:
		name, err := vm.constant(ins.Op, ins.Index)
		if err != nil {
			return err
		}
		v, ok := vm.globals[name.String()]
		if !ok {
			return &UnboundGlobalError{Name: name.String()}
		}
		vm.push(v)

	case OpAdd:
		lhs, rhs, err := vm.pop2(ins.Op)
		if err != nil {
			return err
		}
		switch {
		case lhs.IsNumber() && rhs.IsNumber():
			vm.push(NumberValue(lhs.Number() + rhs.Number()))
		case lhs.IsString():
			vm.push(StringValue(lhs.Text() + rhs.String()))
		case rhs.IsString():
			vm.push(StringValue(lhs.String() + rhs.Text()))
		default:
			return &TypeMismatchError{Op: ins.Op, Left: lhs.TypeName(), Right: rhs.TypeName()}
		}

	case OpSub:
		if err := vm.arith(ins.Op, func(a, b float64) float64 { return a - b }); err != nil {
			return err
		}

	case OpMul:
		if err := vm.arith(ins.Op, func(a, b float64) float64 { return a * b }); err != nil {
			return err
		}

	case OpDiv:
		// IEEE semantics: division by zero yields an infinity or NaN.
		if err := vm.arith(ins.Op, func(a, b float64) float64 { return a / b }); err != nil {
			return err
		}

	case OpMod:
		if err := vm.arith(ins.Op, math.Mod); err != nil {
			return err
		}

	case OpPrint:
		v, err := vm.pop(ins.Op)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(vm.out, v.DebugString()); err != nil {
			return fmt.Errorf("vm: print: %w", err)
		}

	default:
		return &UnknownOpcodeError{Op: ins.Op}
	}

	vm.ip++
	return nil
}

// arith applies fn to the top two stack values, right operand popped
// first. Defined only for number operands.
func (vm *VM) arith(op Opcode, fn func(a, b float64) float64) error {
	lhs, rhs, err := vm.pop2(op)
	if err != nil {
		return err
	}
	if !lhs.IsNumber() || !rhs.IsNumber() {
		return &TypeMismatchError{Op: op, Left: lhs.TypeName(), Right: rhs.TypeName()}
	}
	vm.push(NumberValue(fn(lhs.Number(), rhs.Number())))
	return nil
}

// jumpTarget computes ip + offset with overflow checking. A target at or
// past the end of the instruction sequence is representable; it halts the
// VM on the next fetch rather than faulting.
func jumpTarget(ip, offset int) (int, bool) {
	target := ip + offset
	if offset > 0 && target < ip {
		return 0, false
	}
	if offset < 0 && target > ip {
		return 0, false
	}
	if target < 0 {
		return 0, false
	}
	return target, true
}

// ---------------------------------------------------------------------------
// Run to completion
// ---------------------------------------------------------------------------

// Run steps the VM until the instruction pointer runs past the end of the
// instruction sequence, returning nil the instant it does. There is no
// halt opcode; pointer exhaustion is the sole normal termination. A fault
// aborts the run and is returned as-is.
func (vm *VM) Run() error {
	for vm.Running() {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}
