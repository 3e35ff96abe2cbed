package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/xiaobogaga/hackvm/internal/vm"
	"github.com/xiaobogaga/hackvm/internal/vmparser"
)

const (
	vmExt  = ".vm"
	asmExt = ".asm"
)

// unit is one .vm file. Its name scopes the static variables of the file.
type unit struct {
	name string
	path string
}

// findUnits resolves path, either a single .vm file or a directory holding
// them, into the units to translate and the default output file:
// <dir>/<dir>.asm for a directory and <file>.asm for a file.
func findUnits(path string) ([]unit, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open program")
	}
	if !info.IsDir() {
		if filepath.Ext(path) != vmExt {
			return nil, "", errors.Errorf("%s is not a %s file", path, vmExt)
		}
		name := strings.TrimSuffix(filepath.Base(path), vmExt)
		return []unit{{name: name, path: path}}, strings.TrimSuffix(path, vmExt) + asmExt, nil
	}

	// ReadDir returns entries sorted by file name, which keeps the output
	// reproducible.
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read program directory")
	}
	var units []unit
	for _, e := range entries {
		// Ignore sub path and files that are not vm code.
		if e.IsDir() || filepath.Ext(e.Name()) != vmExt {
			continue
		}
		units = append(units, unit{
			name: strings.TrimSuffix(e.Name(), vmExt),
			path: filepath.Join(path, e.Name()),
		})
	}
	if len(units) == 0 {
		return nil, "", errors.Errorf("no %s files in %s", vmExt, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to resolve program directory")
	}
	return units, filepath.Join(path, filepath.Base(abs)+asmExt), nil
}

// loadProgram parses every unit under path, in order.
func loadProgram(path string) (vm.Program, string, error) {
	units, output, err := findUnits(path)
	if err != nil {
		return nil, "", err
	}
	var program vm.Program
	for _, u := range units {
		cmds, err := parseUnit(u)
		if err != nil {
			return nil, "", err
		}
		program = append(program, cmds...)
	}
	return program, output, nil
}

func parseUnit(u unit) ([]vm.Command, error) {
	f, err := os.Open(u.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", u.path)
	}
	defer f.Close()
	return vmparser.Parse(u.name, f)
}
