// Image producer for the banana VM.
// Builds one of the sample programs with the embedding API and writes it
// as a program image.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/chazu/banana/image"
	"github.com/chazu/banana/vm"
)

// samples maps sample names to program producers.
var samples = map[string]func() *vm.Program{
	"hello":     helloProgram,
	"greet":     greetProgram,
	"branch":    branchProgram,
	"countdown": countdownProgram,
}

func main() {
	output := flag.String("o", "out.bnna", "Output image file")
	list := flag.Bool("list", false, "List sample programs and exit")
	disasm := flag.Bool("disasm", false, "Disassemble the sample instead of writing it")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mkimage [options] <sample>\n\n")
		fmt.Fprintf(os.Stderr, "Writes a sample banana program as an image file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *list {
		names := make([]string, 0, len(samples))
		for name := range samples {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	producer, ok := samples[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown sample %q (try -list)\n", flag.Arg(0))
		os.Exit(1)
	}
	program := producer()

	if *disasm {
		fmt.Print(vm.Disassemble(program))
		return
	}

	data, err := image.Encode(program)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d bytes, %s)\n", *output, len(data), image.FormatHash(image.HashBytes(data)))
}

// helloProgram adds two numbers and prints the sum.
func helloProgram() *vm.Program {
	b := vm.NewProgramBuilder()
	b.EmitConstant(vm.NumberValue(2.0))
	b.EmitConstant(vm.NumberValue(4.0))
	b.Emit(vm.Add())
	b.Emit(vm.Print())
	return b.Build()
}

// greetProgram builds a greeting via globals and string concatenation.
func greetProgram() *vm.Program {
	b := vm.NewProgramBuilder()
	name := b.AddConstant(vm.StringValue("name"))
	b.EmitConstant(vm.StringValue("world"))
	b.Emit(vm.SetGlobal(name))
	b.EmitConstant(vm.StringValue("hello, "))
	b.Emit(vm.GetGlobal(name))
	b.Emit(vm.Add())
	b.Emit(vm.Print())
	return b.Build()
}

// branchProgram prints one of two strings depending on a condition. The
// shape is the standard producer idiom: TEST_NOT inverts the condition
// to skip the jump over the then-arm, and jump offsets land one past
// their target.
func branchProgram() *vm.Program {
	b := vm.NewProgramBuilder()
	cond := b.AddConstant(vm.BoolValue(true))
	then := b.AddConstant(vm.StringValue("yes"))
	other := b.AddConstant(vm.StringValue("no"))

	b.Emit(vm.LoadConstant(cond))  // 0
	b.Emit(vm.TestNot())           // 1
	b.Emit(vm.Jump(3))             // 2: to else-arm at 6
	b.Emit(vm.LoadConstant(then))  // 3
	b.Emit(vm.Print())             // 4
	b.Emit(vm.Jump(2))             // 5: past else-arm, to 8
	b.Emit(vm.LoadConstant(other)) // 6
	b.Emit(vm.Print())             // 7
	return b.Build()
}

// countdownProgram prints 3, 2, 1 using a global counter and a backward
// jump.
func countdownProgram() *vm.Program {
	b := vm.NewProgramBuilder()
	i := b.AddConstant(vm.StringValue("i"))
	three := b.AddConstant(vm.NumberValue(3))
	one := b.AddConstant(vm.NumberValue(1))

	b.Emit(vm.LoadConstant(three)) // 0
	b.Emit(vm.SetGlobal(i))        // 1
	b.Emit(vm.GetGlobal(i))        // 2: loop head
	b.Emit(vm.Print())             // 3
	b.Emit(vm.GetGlobal(i))        // 4
	b.Emit(vm.LoadConstant(one))   // 5
	b.Emit(vm.Sub())               // 6
	b.Emit(vm.SetGlobal(i))        // 7
	b.Emit(vm.GetGlobal(i))        // 8
	b.Emit(vm.TestNot())           // 9: nonzero counter skips the exit jump
	b.Emit(vm.Jump(2))             // 10: exit, lands past the end
	b.Emit(vm.Jump(-10))           // 11: back to the loop head at 2
	return b.Build()
}
