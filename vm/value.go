package vm

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Value: Tagged runtime value
// ---------------------------------------------------------------------------

// ValueKind identifies the active variant of a Value.
type ValueKind byte

const (
	KindNil ValueKind = iota
	KindBool
	KindNumber
	KindString
)

// Value is the banana runtime value: one of nil, bool, number (float64)
// or string. Values are immutable once constructed; operations that
// combine values always produce a new Value.
//
// The zero Value is nil.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
}

// NilValue returns the nil value.
func NilValue() Value {
	return Value{kind: KindNil}
}

// BoolValue returns a boolean value.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// NumberValue returns a number value.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// StringValue returns a string value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// Kind returns the active variant tag.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool {
	return v.kind == KindNil
}

// IsBool returns true if v is a boolean.
func (v Value) IsBool() bool {
	return v.kind == KindBool
}

// IsNumber returns true if v is a number.
func (v Value) IsNumber() bool {
	return v.kind == KindNumber
}

// IsString returns true if v is a string.
func (v Value) IsString() bool {
	return v.kind == KindString
}

// Bool returns the boolean payload. Only meaningful when IsBool.
func (v Value) Bool() bool {
	return v.b
}

// Number returns the numeric payload. Only meaningful when IsNumber.
func (v Value) Number() float64 {
	return v.num
}

// Text returns the string payload. Only meaningful when IsString.
func (v Value) Text() string {
	return v.str
}

// ---------------------------------------------------------------------------
// Display, type tags, truthiness
// ---------------------------------------------------------------------------

// String returns the canonical display form: "nil", "true"/"false", the
// shortest decimal text for numbers, or the string payload itself.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	}
	return fmt.Sprintf("invalid(%d)", v.kind)
}

// TypeName returns the diagnostic type tag for v.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	}
	return "invalid"
}

// DebugString returns a variant-revealing representation: Nil, Bool(true),
// Number(6), String("x"). This is what OpPrint emits to the output sink.
func (v Value) DebugString() string {
	switch v.kind {
	case KindNil:
		return "Nil"
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.b)
	case KindNumber:
		return fmt.Sprintf("Number(%s)", strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindString:
		return fmt.Sprintf("String(%q)", v.str)
	}
	return fmt.Sprintf("invalid(%d)", v.kind)
}

// IsTruthy returns the boolean interpretation of v used by conditional
// skips: nil and false are falsy, a number is falsy when it equals zero,
// a string is falsy when it is empty.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0.0
	case KindString:
		return v.str != ""
	}
	return false
}
