package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Constants and globals
const (
	OpLoadConstant Opcode = 0x01 // push constant pool entry (pool index)
	OpSetGlobal    Opcode = 0x02 // pop, bind under name from constant pool (pool index)
	OpGetGlobal    Opcode = 0x03 // push value bound under name from constant pool (pool index)
)

// Control flow
const (
	OpTestNot Opcode = 0x10 // pop, skip next instruction if truthy
	OpJump    Opcode = 0x11 // add signed offset to the instruction pointer
)

// Arithmetic
const (
	OpAdd Opcode = 0x20 // pop two, push sum or string concatenation
	OpSub Opcode = 0x21 // pop two, push difference
	OpMul Opcode = 0x22 // pop two, push product
	OpDiv Opcode = 0x23 // pop two, push quotient
	OpMod Opcode = 0x24 // pop two, push remainder
)

// Output
const (
	OpPrint Opcode = 0x30 // pop, emit debug form to the output sink
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OperandKind describes what an instruction's operand field carries.
type OperandKind int

const (
	OperandNone   OperandKind = iota // no operand
	OperandIndex                     // constant pool index
	OperandOffset                    // signed instruction pointer offset
)

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name        string      // human-readable name
	Operand     OperandKind // operand interpretation
	StackEffect int         // net effect on stack depth
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	// Constants and globals
	OpLoadConstant: {"LOAD_CONSTANT", OperandIndex, 1},
	OpSetGlobal:    {"SET_GLOBAL", OperandIndex, -1},
	OpGetGlobal:    {"GET_GLOBAL", OperandIndex, 1},

	// Control flow
	OpTestNot: {"TEST_NOT", OperandNone, -1},
	OpJump:    {"JUMP", OperandOffset, 0},

	// Arithmetic
	OpAdd: {"ADD", OperandNone, -1},
	OpSub: {"SUB", OperandNone, -1},
	OpMul: {"MUL", OperandNone, -1},
	OpDiv: {"DIV", OperandNone, -1},
	OpMod: {"MOD", OperandNone, -1},

	// Output
	OpPrint: {"PRINT", OperandNone, -1},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), Operand: OperandNone}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// Instruction: opcode plus operand
// ---------------------------------------------------------------------------

// Instruction is one decoded VM instruction. Index is used by opcodes with
// an OperandIndex operand, Offset by opcodes with an OperandOffset operand;
// the unused field is zero. Instructions are immutable once emitted.
type Instruction struct {
	Op     Opcode
	Index  int // constant pool index
	Offset int // signed jump offset
}

// LoadConstant pushes constant pool entry index.
func LoadConstant(index int) Instruction {
	return Instruction{Op: OpLoadConstant, Index: index}
}

// TestNot pops one value and skips the next instruction if it is truthy.
func TestNot() Instruction {
	return Instruction{Op: OpTestNot}
}

// Jump adds offset to the instruction pointer. The landing site is
// old ip + offset + 1 because the engine advances the pointer after
// every instruction, jumps included.
func Jump(offset int) Instruction {
	return Instruction{Op: OpJump, Offset: offset}
}

// SetGlobal pops one value and binds it under the display string of
// constant pool entry index.
func SetGlobal(index int) Instruction {
	return Instruction{Op: OpSetGlobal, Index: index}
}

// GetGlobal pushes the global bound under the display string of constant
// pool entry index.
func GetGlobal(index int) Instruction {
	return Instruction{Op: OpGetGlobal, Index: index}
}

// Add pops two values and pushes their sum or string concatenation.
func Add() Instruction { return Instruction{Op: OpAdd} }

// Sub pops two numbers and pushes their difference.
func Sub() Instruction { return Instruction{Op: OpSub} }

// Mul pops two numbers and pushes their product.
func Mul() Instruction { return Instruction{Op: OpMul} }

// Div pops two numbers and pushes their quotient.
func Div() Instruction { return Instruction{Op: OpDiv} }

// Mod pops two numbers and pushes their remainder.
func Mod() Instruction { return Instruction{Op: OpMod} }

// Print pops one value and emits its debug form to the output sink.
func Print() Instruction { return Instruction{Op: OpPrint} }

// String renders the instruction with its operand, if any.
func (ins Instruction) String() string {
	switch ins.Op.Info().Operand {
	case OperandIndex:
		return fmt.Sprintf("%s %d", ins.Op, ins.Index)
	case OperandOffset:
		return fmt.Sprintf("%s %+d", ins.Op, ins.Offset)
	}
	return ins.Op.String()
}

// ---------------------------------------------------------------------------
// Program: constant pool plus instruction sequence
// ---------------------------------------------------------------------------

// Program is an immutable instruction sequence plus its constant pool,
// both addressed by zero-based index. The producer is responsible for the
// validity of constant pool indices referenced by instructions; the engine
// does not validate them at construction time, and an out-of-range access
// is a fatal error at execution time.
type Program struct {
	Constants []Value
	Ops       []Instruction
}

// NewProgram constructs a Program from a constant list and an instruction
// list.
func NewProgram(constants []Value, ops []Instruction) *Program {
	return &Program{Constants: constants, Ops: ops}
}

// ---------------------------------------------------------------------------
// ProgramBuilder: Helper for constructing programs
// ---------------------------------------------------------------------------

// ProgramBuilder helps construct instruction sequences and their constant
// pool. It performs index bookkeeping only; it does not validate the
// resulting program.
type ProgramBuilder struct {
	constants []Value
	ops       []Instruction
}

// NewProgramBuilder creates a new program builder.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{
		constants: make([]Value, 0, 8),
		ops:       make([]Instruction, 0, 32),
	}
}

// AddConstant adds v to the constant pool and returns its index. Equal
// constants are deduplicated.
func (b *ProgramBuilder) AddConstant(v Value) int {
	for i, c := range b.constants {
		if c == v {
			return i
		}
	}
	b.constants = append(b.constants, v)
	return len(b.constants) - 1
}

// Emit appends an instruction and returns its index.
func (b *ProgramBuilder) Emit(ins Instruction) int {
	b.ops = append(b.ops, ins)
	return len(b.ops) - 1
}

// EmitConstant adds v to the constant pool and emits a LOAD_CONSTANT for it.
func (b *ProgramBuilder) EmitConstant(v Value) int {
	return b.Emit(LoadConstant(b.AddConstant(v)))
}

// Len returns the number of instructions emitted so far.
func (b *ProgramBuilder) Len() int {
	return len(b.ops)
}

// Build returns the constructed program.
func (b *ProgramBuilder) Build() *Program {
	return NewProgram(b.constants, b.ops)
}

// ---------------------------------------------------------------------------
// Disassembler
// ---------------------------------------------------------------------------

// Disassemble renders a program as one instruction per line, annotating
// constant pool operands with the referenced value. Diagnostic only.
func Disassemble(p *Program) string {
	var sb strings.Builder
	for i, ins := range p.Ops {
		fmt.Fprintf(&sb, "%04d  %s", i, ins)
		if ins.Op.Info().Operand == OperandIndex {
			if ins.Index >= 0 && ins.Index < len(p.Constants) {
				fmt.Fprintf(&sb, "  ; %s", p.Constants[ins.Index].DebugString())
			} else {
				sb.WriteString("  ; <out of range>")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
