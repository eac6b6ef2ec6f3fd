// Banana CLI - runs banana program images.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/banana/image"
	"github.com/chazu/banana/manifest"
	"github.com/chazu/banana/store"
	"github.com/chazu/banana/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("banana")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	trace := flag.Bool("trace", false, "Trace each instruction to stderr")
	disasm := flag.Bool("disasm", false, "Disassemble the program and exit")
	hash := flag.Bool("hash", false, "Print the program's content hash and exit")
	record := flag.Bool("record", false, "Record the run in the program store")
	storePath := flag.String("store", "", "Program store path (overrides banana.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: banana [options] [image-file]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a banana program image. With no image-file argument, the image\n")
		fmt.Fprintf(os.Stderr, "configured in the nearest banana.toml is used.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  banana hello.bnna            # Run an image file\n")
		fmt.Fprintf(os.Stderr, "  banana -disasm hello.bnna    # Show its instructions\n")
		fmt.Fprintf(os.Stderr, "  banana -record hello.bnna    # Run and record in the store\n")
		fmt.Fprintf(os.Stderr, "  banana                       # Run the banana.toml image\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	if err := run(flag.Args(), *trace, *disasm, *hash, *record, *storePath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, trace, disasm, hash, record bool, storePath string) error {
	imagePath, m, err := resolveImage(args)
	if err != nil {
		return err
	}
	if m != nil && m.Run.Trace {
		trace = true
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}
	program, err := image.Decode(data)
	if err != nil {
		return err
	}
	log.Infof("loaded %s: %d constants, %d instructions",
		imagePath, len(program.Constants), len(program.Ops))

	if hash {
		fmt.Println(image.FormatHash(image.HashBytes(data)))
		return nil
	}
	if disasm {
		fmt.Print(vm.Disassemble(program))
		return nil
	}

	machine := vm.NewVM(program)
	if trace {
		machine.SetTrace(func(ip int, ins vm.Instruction) {
			fmt.Fprintf(os.Stderr, "trace %04d  %s\n", ip, ins)
		})
	}

	var captured strings.Builder
	if record {
		machine.SetOutput(io.MultiWriter(os.Stdout, &captured))
	}

	runErr := machine.Run()

	if record {
		if err := recordRun(m, storePath, imagePath, program, captured.String(), runErr); err != nil {
			log.Errorf("recording run: %v", err)
		}
	}
	return runErr
}

// resolveImage picks the image path from the argument list or, failing
// that, from the nearest banana.toml.
func resolveImage(args []string) (string, *manifest.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return "", nil, err
	}

	if len(args) > 0 {
		return args[0], m, nil
	}
	if m == nil {
		return "", nil, errors.New("no image file given and no banana.toml found")
	}
	if err := m.Validate(); err != nil {
		return "", nil, err
	}
	return m.ImagePath(), m, nil
}

func recordRun(m *manifest.Manifest, storePath, imagePath string, program *vm.Program, output string, runErr error) error {
	path := storePath
	if path == "" {
		if m != nil {
			path = m.StorePath()
		} else {
			path = store.DefaultPath
		}
	}

	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	name := imagePath
	if m != nil && m.Project.Name != "" {
		name = m.Project.Name
	}
	h, err := s.SaveProgram(name, program)
	if err != nil {
		return err
	}
	id, err := s.RecordRun(h, output, runErr)
	if err != nil {
		return err
	}
	log.Infof("recorded run %s of %s", id, h)
	return nil
}
