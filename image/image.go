// Package image implements the serialized form of banana programs. An
// image is a canonically CBOR-encoded program: deterministic byte output
// for a given program, which makes the sha256 content hash stable and
// usable as a storage key.
package image

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/banana/vm"
)

// Format magic and version. Version bumps on any wire-incompatible change.
var imageMagic = [4]byte{'B', 'N', 'N', 'A'}

const imageVersion byte = 1

// Value wire tags. One tag per variant; booleans split into true/false so
// a value entry never needs a separate payload field for them.
const (
	wireTagNil    byte = 0x0
	wireTagTrue   byte = 0x1
	wireTagFalse  byte = 0x2
	wireTagNumber byte = 0x3
	wireTagString byte = 0x4
)

// wireValue carries one constant. Num must not be omitempty: omitempty
// treats -0.0 as the zero value and would drop its sign through a
// round trip.
type wireValue struct {
	Tag byte    `cbor:"1,keyasint"`
	Num float64 `cbor:"2,keyasint"`
	Str string  `cbor:"3,keyasint,omitempty"`
}

type wireInstruction struct {
	Op     byte `cbor:"1,keyasint"`
	Index  int  `cbor:"2,keyasint,omitempty"`
	Offset int  `cbor:"3,keyasint,omitempty"`
}

type wireProgram struct {
	Magic     [4]byte           `cbor:"1,keyasint"`
	Version   byte              `cbor:"2,keyasint"`
	Constants []wireValue       `cbor:"3,keyasint"`
	Ops       []wireInstruction `cbor:"4,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes a program to its canonical image bytes.
func Encode(p *vm.Program) ([]byte, error) {
	w := wireProgram{
		Magic:     imageMagic,
		Version:   imageVersion,
		Constants: make([]wireValue, 0, len(p.Constants)),
		Ops:       make([]wireInstruction, 0, len(p.Ops)),
	}
	for _, c := range p.Constants {
		wv, err := encodeValue(c)
		if err != nil {
			return nil, err
		}
		w.Constants = append(w.Constants, wv)
	}
	for _, ins := range p.Ops {
		if !ins.Op.Valid() {
			return nil, fmt.Errorf("image: encode: unknown opcode %s", ins.Op)
		}
		w.Ops = append(w.Ops, wireInstruction{
			Op:     byte(ins.Op),
			Index:  ins.Index,
			Offset: ins.Offset,
		})
	}
	return cborEncMode.Marshal(&w)
}

// Decode deserializes an image back into a program. It validates the
// header and the opcode set, but not constant pool indices; those stay
// the producer's responsibility and fault at execution time.
func Decode(data []byte) (*vm.Program, error) {
	var w wireProgram
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if w.Magic != imageMagic {
		return nil, fmt.Errorf("image: bad magic %q", w.Magic[:])
	}
	if w.Version != imageVersion {
		return nil, fmt.Errorf("image: unsupported version %d (want %d)", w.Version, imageVersion)
	}

	constants := make([]vm.Value, 0, len(w.Constants))
	for i, wv := range w.Constants {
		v, err := decodeValue(wv)
		if err != nil {
			return nil, fmt.Errorf("image: constant %d: %w", i, err)
		}
		constants = append(constants, v)
	}

	ops := make([]vm.Instruction, 0, len(w.Ops))
	for i, wi := range w.Ops {
		op := vm.Opcode(wi.Op)
		if !op.Valid() {
			return nil, fmt.Errorf("image: instruction %d: unknown opcode 0x%02X", i, wi.Op)
		}
		ops = append(ops, vm.Instruction{Op: op, Index: wi.Index, Offset: wi.Offset})
	}

	return vm.NewProgram(constants, ops), nil
}

func encodeValue(v vm.Value) (wireValue, error) {
	switch v.Kind() {
	case vm.KindNil:
		return wireValue{Tag: wireTagNil}, nil
	case vm.KindBool:
		if v.Bool() {
			return wireValue{Tag: wireTagTrue}, nil
		}
		return wireValue{Tag: wireTagFalse}, nil
	case vm.KindNumber:
		return wireValue{Tag: wireTagNumber, Num: v.Number()}, nil
	case vm.KindString:
		return wireValue{Tag: wireTagString, Str: v.Text()}, nil
	}
	return wireValue{}, fmt.Errorf("image: encode: invalid value kind %d", v.Kind())
}

func decodeValue(wv wireValue) (vm.Value, error) {
	switch wv.Tag {
	case wireTagNil:
		return vm.NilValue(), nil
	case wireTagTrue:
		return vm.BoolValue(true), nil
	case wireTagFalse:
		return vm.BoolValue(false), nil
	case wireTagNumber:
		return vm.NumberValue(wv.Num), nil
	case wireTagString:
		return vm.StringValue(wv.Str), nil
	}
	return vm.Value{}, fmt.Errorf("unknown value tag 0x%02X", wv.Tag)
}

// ---------------------------------------------------------------------------
// Content addressing
// ---------------------------------------------------------------------------

// Hash returns the sha256 content hash of a program's canonical image.
// Equal programs hash equal; any constant or instruction difference
// changes the hash.
func Hash(p *vm.Program) ([32]byte, error) {
	data, err := Encode(p)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// HashBytes returns the sha256 content hash of already-encoded image
// bytes.
func HashBytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// FormatHash renders a content hash as lowercase hex, the form used for
// store keys and CLI output.
func FormatHash(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
