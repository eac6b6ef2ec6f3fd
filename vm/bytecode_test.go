package vm

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Opcode metadata tests
// ---------------------------------------------------------------------------

func TestOpcodeInfo(t *testing.T) {
	tests := []struct {
		op      Opcode
		name    string
		operand OperandKind
	}{
		{OpLoadConstant, "LOAD_CONSTANT", OperandIndex},
		{OpSetGlobal, "SET_GLOBAL", OperandIndex},
		{OpGetGlobal, "GET_GLOBAL", OperandIndex},
		{OpTestNot, "TEST_NOT", OperandNone},
		{OpJump, "JUMP", OperandOffset},
		{OpAdd, "ADD", OperandNone},
		{OpSub, "SUB", OperandNone},
		{OpMul, "MUL", OperandNone},
		{OpDiv, "DIV", OperandNone},
		{OpMod, "MOD", OperandNone},
		{OpPrint, "PRINT", OperandNone},
	}

	for _, tt := range tests {
		info := tt.op.Info()
		if info.Name != tt.name {
			t.Errorf("%s: Name = %q, want %q", tt.op, info.Name, tt.name)
		}
		if info.Operand != tt.operand {
			t.Errorf("%s: Operand = %d, want %d", tt.op, info.Operand, tt.operand)
		}
		if !tt.op.Valid() {
			t.Errorf("%s: Valid() = false", tt.op)
		}
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xFF)
	if op.Valid() {
		t.Error("Opcode(0xFF).Valid() = true")
	}
	if !strings.HasPrefix(op.Name(), "UNKNOWN_") {
		t.Errorf("unknown opcode should have UNKNOWN_ prefix, got %q", op.Name())
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		ins  Instruction
		want string
	}{
		{LoadConstant(3), "LOAD_CONSTANT 3"},
		{SetGlobal(0), "SET_GLOBAL 0"},
		{Jump(2), "JUMP +2"},
		{Jump(-1), "JUMP -1"},
		{Add(), "ADD"},
		{Print(), "PRINT"},
	}

	for _, tt := range tests {
		if got := tt.ins.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// ProgramBuilder tests
// ---------------------------------------------------------------------------

func TestProgramBuilderEmit(t *testing.T) {
	b := NewProgramBuilder()
	i0 := b.AddConstant(NumberValue(2))
	i1 := b.AddConstant(NumberValue(4))
	b.Emit(LoadConstant(i0))
	b.Emit(LoadConstant(i1))
	b.Emit(Add())
	b.Emit(Print())

	p := b.Build()
	if len(p.Constants) != 2 {
		t.Fatalf("constant pool size = %d, want 2", len(p.Constants))
	}
	if len(p.Ops) != 4 {
		t.Fatalf("instruction count = %d, want 4", len(p.Ops))
	}
	if p.Ops[2].Op != OpAdd {
		t.Errorf("Ops[2] = %s, want ADD", p.Ops[2])
	}
}

func TestProgramBuilderDedupsConstants(t *testing.T) {
	b := NewProgramBuilder()
	i0 := b.AddConstant(NumberValue(1))
	i1 := b.AddConstant(NumberValue(1))
	i2 := b.AddConstant(StringValue("a"))
	i3 := b.AddConstant(StringValue("a"))

	if i0 != i1 {
		t.Errorf("equal number constants got indices %d and %d", i0, i1)
	}
	if i2 != i3 {
		t.Errorf("equal string constants got indices %d and %d", i2, i3)
	}
	if n := len(b.Build().Constants); n != 2 {
		t.Errorf("constant pool size = %d, want 2", n)
	}
}

func TestProgramBuilderEmitConstant(t *testing.T) {
	b := NewProgramBuilder()
	b.EmitConstant(StringValue("who"))
	b.EmitConstant(StringValue("who"))

	p := b.Build()
	if len(p.Constants) != 1 {
		t.Errorf("constant pool size = %d, want 1", len(p.Constants))
	}
	if len(p.Ops) != 2 || p.Ops[0] != LoadConstant(0) || p.Ops[1] != LoadConstant(0) {
		t.Errorf("unexpected instruction stream %v", p.Ops)
	}
}

// ---------------------------------------------------------------------------
// Disassembler tests
// ---------------------------------------------------------------------------

func TestDisassemble(t *testing.T) {
	p := NewProgram(
		[]Value{NumberValue(2), NumberValue(4)},
		[]Instruction{LoadConstant(0), LoadConstant(1), Add(), Print()},
	)

	out := Disassemble(p)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want 4:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "LOAD_CONSTANT 0") || !strings.Contains(lines[0], "Number(2)") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[2], "ADD") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestDisassembleOutOfRangeConstant(t *testing.T) {
	p := NewProgram(nil, []Instruction{LoadConstant(7)})
	if out := Disassemble(p); !strings.Contains(out, "<out of range>") {
		t.Errorf("missing out-of-range annotation: %q", out)
	}
}
