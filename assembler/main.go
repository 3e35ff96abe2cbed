package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/tebeka/atexit"

	"github.com/xiaobogaga/hackvm/internal/hackasm"
)

// a simple program accepts a input assemble code file supported by hack assemble language and transforms
// the content to the corresponding hack machine language.

var (
	inputPath  = flag.String("i", "./input.asm", "the input hack assemble code file path")
	outputPath = flag.String("o", "./output.hack", "the output hack binary code file path")
	verbose    = flag.Bool("v", false, "whether print all transformed binary code")
)

func main() {
	flag.Parse()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	instructions, err := assemble(*inputPath, *outputPath)
	if err != nil {
		slog.Error("[Assembler]: failed to assemble", "input", *inputPath, "err", err)
		atexit.Exit(1)
	}
	if *verbose {
		for _, ins := range instructions {
			fmt.Println(ins)
		}
	}
	slog.Info("assembled", "words", len(instructions), "output", *outputPath)
	atexit.Exit(0)
}

// assemble translates the file at input and saves the machine code to output.
func assemble(input, output string) ([]hackasm.Instruction, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file %s", input)
	}
	defer f.Close()
	instructions, err := hackasm.New().Parse(f)
	if err != nil {
		return nil, err
	}
	out, err := os.Create(output)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to save to path %s", output)
	}
	defer out.Close()
	if err := hackasm.Format(out, instructions); err != nil {
		return nil, err
	}
	return instructions, nil
}
