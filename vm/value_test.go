package vm

import (
	"math"
	"testing"
)

func TestValueDisplay(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NilValue(), "nil"},
		{BoolValue(true), "true"},
		{BoolValue(false), "false"},
		{NumberValue(6), "6"},
		{NumberValue(2.5), "2.5"},
		{NumberValue(-0.25), "-0.25"},
		{NumberValue(math.Inf(1)), "+Inf"},
		{StringValue(""), ""},
		{StringValue("hello"), "hello"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("%s: String() = %q, want %q", tt.v.DebugString(), got, tt.want)
		}
	}
}

func TestValueTypeName(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NilValue(), "nil"},
		{BoolValue(false), "bool"},
		{NumberValue(0), "number"},
		{StringValue(""), "string"},
	}

	for _, tt := range tests {
		if got := tt.v.TypeName(); got != tt.want {
			t.Errorf("%s: TypeName() = %q, want %q", tt.v.DebugString(), got, tt.want)
		}
	}
}

func TestValueTruthiness(t *testing.T) {
	falsy := []Value{NilValue(), BoolValue(false), NumberValue(0.0), StringValue("")}
	for _, v := range falsy {
		if v.IsTruthy() {
			t.Errorf("%s: IsTruthy() = true, want false", v.DebugString())
		}
	}

	truthy := []Value{BoolValue(true), NumberValue(0.5), NumberValue(-1), StringValue("x"), NumberValue(math.NaN())}
	for _, v := range truthy {
		if !v.IsTruthy() {
			t.Errorf("%s: IsTruthy() = false, want true", v.DebugString())
		}
	}
}

func TestValueDebugString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NilValue(), "Nil"},
		{BoolValue(true), "Bool(true)"},
		{BoolValue(false), "Bool(false)"},
		{NumberValue(6), "Number(6)"},
		{NumberValue(1.5), "Number(1.5)"},
		{StringValue("x"), `String("x")`},
		{StringValue(""), `String("")`},
	}

	for _, tt := range tests {
		if got := tt.v.DebugString(); got != tt.want {
			t.Errorf("DebugString() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if v := BoolValue(true); !v.IsBool() || !v.Bool() {
		t.Errorf("BoolValue(true) = %s", v.DebugString())
	}
	if v := NumberValue(3.5); !v.IsNumber() || v.Number() != 3.5 {
		t.Errorf("NumberValue(3.5) = %s", v.DebugString())
	}
	if v := StringValue("abc"); !v.IsString() || v.Text() != "abc" {
		t.Errorf("StringValue(abc) = %s", v.DebugString())
	}
	var zero Value
	if !zero.IsNil() {
		t.Errorf("zero Value should be nil, got %s", zero.DebugString())
	}
}
