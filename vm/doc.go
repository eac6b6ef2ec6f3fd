// Package vm implements the banana virtual machine.
//
// This package contains:
//   - Tagged value representation (nil, bool, number, string)
//   - Opcode and instruction definitions
//   - Program construction helpers and a disassembler
//   - The stack-based execution engine
package vm
