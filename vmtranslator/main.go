package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/tebeka/atexit"

	"github.com/xiaobogaga/hackvm/internal/hackasm"
	"github.com/xiaobogaga/hackvm/internal/hackcpu"
	"github.com/xiaobogaga/hackvm/internal/vm"
)

// A simple program to translate hack vm codes to hack assembler.

var (
	path    = flag.String("path", ".", "the program path, a .vm file or a directory of .vm files")
	output  = flag.String("o", "", "the saved path, <dir>/<dir>.asm or <file>.asm by default")
	verbose = flag.Bool("v", false, "whether print translate result")
	// Programs without Sys.init, such as single unit tests, need this off.
	writeInitializeCode = flag.Bool("wi", true, "whether write initialize code")
	entry               = flag.String("entry", vm.DefaultEntry, "the function called by the initialize code")
	binary              = flag.Bool("bin", false, "also assemble the result into a .hack file")
	cycles              = flag.Int("run", 0, "simulate the result for at most N cycles and print the machine state")
	trace               = flag.Bool("trace", false, "log every simulated instruction")
)

func main() {
	flag.Parse()
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	if *trace {
		level = hackcpu.LevelTrace
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := translate(); err != nil {
		slog.Error("[Translator]: failed to translate program", "path", *path, "err", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func translate() error {
	program, target, err := loadProgram(*path)
	if err != nil {
		return err
	}
	if *output != "" {
		target = *output
	}
	if *writeInitializeCode {
		program = program.WithBootstrap(*entry)
	}
	asm, err := program.Translate()
	if err != nil {
		return err
	}
	if *verbose {
		fmt.Print(asm)
	}
	if err := os.WriteFile(target, []byte(asm), 0666); err != nil {
		return errors.Wrapf(err, "failed to save to path %s", target)
	}
	slog.Info("translated", "commands", len(program), "output", target)

	if !*binary && *cycles <= 0 {
		return nil
	}
	instructions, err := hackasm.New().Parse(strings.NewReader(asm))
	if err != nil {
		return errors.Wrap(err, "failed to assemble translated program")
	}
	if *binary {
		if err := saveBinary(strings.TrimSuffix(target, asmExt)+".hack", instructions); err != nil {
			return err
		}
	}
	if *cycles > 0 {
		return simulate(hackasm.Words(instructions))
	}
	return nil
}

func saveBinary(path string, instructions []hackasm.Instruction) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to save to path %s", path)
	}
	defer f.Close()
	if err := hackasm.Format(f, instructions); err != nil {
		return err
	}
	slog.Info("assembled", "words", len(instructions), "output", path)
	return nil
}

func simulate(rom []uint16) error {
	opts := []hackcpu.Option{hackcpu.MaxCycles(*cycles)}
	if !*writeInitializeCode {
		opts = append(opts, hackcpu.Preset(hackcpu.SP, vm.StackBase))
	}
	if *trace {
		opts = append(opts, hackcpu.Trace(slog.Default()))
	}
	cpu, err := hackcpu.New(rom, opts...)
	if err != nil {
		return err
	}
	err = cpu.Run()
	fmt.Println(cpu.StateTable())
	if errors.Is(err, hackcpu.ErrCycleLimit) {
		slog.Warn("simulation stopped", "err", err)
		return nil
	}
	return err
}
