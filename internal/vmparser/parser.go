// Package vmparser reads VM source text into commands.
//
// There are four kinds of VM commands:
//   - Arithmetic commands: add, sub, neg, eq, gt, lt, and, or, not.
//   - Memory access commands: push segment index, pop segment index, where
//     segment is one of argument, local, static, constant, this, that,
//     pointer, temp.
//   - Program flow commands: label name, goto name, if-goto name.
//   - Function calling commands: function name nLocals, call name nArgs,
//     return.
//
// A line holds at most one command. Everything from // to the end of the line
// is a comment.
package vmparser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/xiaobogaga/hackvm/internal/vm"
	"github.com/xiaobogaga/hackvm/util"
)

var (
	// ErrArity reports a command with the wrong number of operands.
	ErrArity = errors.New("wrong number of operands")
	// ErrSymbol reports a malformed label or function name.
	ErrSymbol = errors.New("invalid symbol name")
	// ErrNumber reports an operand that is not a decimal number.
	ErrNumber = errors.New("not a number")
)

// SyntaxError locates a parse failure in its source.
type SyntaxError struct {
	Unit string
	Line int
	Text string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %v near %q at %s:%d", e.Err, e.Text, e.Unit, e.Line)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

type keyWordTP int

const (
	pushKeyWordTP keyWordTP = iota
	popKeyWordTP
	labelKeyWordTP
	gotoKeyWordTP
	ifGotoKeyWordTP
	functionKeyWordTP
	callKeyWordTP
	returnKeyWordTP
)

var keyWordsMap = map[string]keyWordTP{
	"push":     pushKeyWordTP,
	"pop":      popKeyWordTP,
	"label":    labelKeyWordTP,
	"goto":     gotoKeyWordTP,
	"if-goto":  ifGotoKeyWordTP,
	"function": functionKeyWordTP,
	"call":     callKeyWordTP,
	"return":   returnKeyWordTP,
}

// operand counts of the keyword commands
var arity = map[keyWordTP]int{
	pushKeyWordTP:     2,
	popKeyWordTP:      2,
	labelKeyWordTP:    1,
	gotoKeyWordTP:     1,
	ifGotoKeyWordTP:   1,
	functionKeyWordTP: 2,
	callKeyWordTP:     2,
	returnKeyWordTP:   0,
}

type parser struct {
	unit        string
	lineCounter int
	commands    []vm.Command
}

// Parse reads every command of one translation unit. unit names the unit,
// normally the file name without its .vm extension, and scopes its static
// variables.
func Parse(unit string, rd io.Reader) ([]vm.Command, error) {
	p := &parser{unit: unit}
	reader := bufio.NewReader(rd)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "read %s", unit)
		}
		p.lineCounter++
		if perr := p.parseLine(line); perr != nil {
			return nil, perr
		}
		if err == io.EOF {
			return p.commands, nil
		}
	}
}

// ParseString is Parse over an in-memory source.
func ParseString(unit, source string) ([]vm.Command, error) {
	return Parse(unit, strings.NewReader(source))
}

func (p *parser) parseLine(line string) error {
	if i := strings.Index(line, "//"); i != -1 {
		line = line[:i]
	}
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil
	}
	cmd, err := p.parseTokens(tokens)
	if err != nil {
		return p.makeError(strings.Join(tokens, " "), err)
	}
	p.commands = append(p.commands, cmd)
	return nil
}

func (p *parser) parseTokens(tokens []string) (vm.Command, error) {
	keyWordTP, exist := keyWordsMap[tokens[0]]
	if !exist {
		cmd, err := vm.ArithmeticByName(tokens[0])
		if err != nil {
			return nil, err
		}
		if len(tokens) != 1 {
			return nil, errors.Wrapf(ErrArity, "%s takes no operands", tokens[0])
		}
		return cmd, nil
	}
	if want := arity[keyWordTP]; len(tokens)-1 != want {
		return nil, errors.Wrapf(ErrArity, "%s takes %d operands, got %d", tokens[0], want, len(tokens)-1)
	}
	switch keyWordTP {
	case pushKeyWordTP, popKeyWordTP:
		return p.parseStackOperation(keyWordTP, tokens[1], tokens[2])
	case labelKeyWordTP, gotoKeyWordTP, ifGotoKeyWordTP:
		return parseBranch(keyWordTP, tokens[1])
	case functionKeyWordTP:
		name, n, err := parseNameAndCount(tokens[1], tokens[2])
		if err != nil {
			return nil, err
		}
		return vm.NewFunction(name, n)
	case callKeyWordTP:
		name, n, err := parseNameAndCount(tokens[1], tokens[2])
		if err != nil {
			return nil, err
		}
		return vm.NewCall(name, n)
	default:
		return vm.NewReturn(), nil
	}
}

func (p *parser) parseStackOperation(op keyWordTP, segmentName, index string) (vm.Command, error) {
	segment, err := vm.SegmentByName(segmentName)
	if err != nil {
		return nil, err
	}
	value, err := getIntegerValue(index)
	if err != nil {
		return nil, err
	}
	if op == pushKeyWordTP {
		return vm.NewPush(segment, value, p.unit)
	}
	return vm.NewPop(segment, value, p.unit)
}

func parseBranch(op keyWordTP, name string) (vm.Command, error) {
	if !util.IsSymbol(name) {
		return nil, errors.Wrap(ErrSymbol, name)
	}
	switch op {
	case labelKeyWordTP:
		return vm.NewLabel(name), nil
	case gotoKeyWordTP:
		return vm.NewGoto(name), nil
	default:
		return vm.NewIfGoto(name), nil
	}
}

func parseNameAndCount(name, count string) (string, int, error) {
	if !util.IsSymbol(name) {
		return "", 0, errors.Wrap(ErrSymbol, name)
	}
	n, err := getIntegerValue(count)
	if err != nil {
		return "", 0, err
	}
	return name, n, nil
}

func getIntegerValue(token string) (int, error) {
	if !util.IsDecimal(token) {
		return 0, errors.Wrap(ErrNumber, token)
	}
	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.Wrapf(vm.ErrOperandRange, "%s does not fit in a word", token)
	}
	return value, nil
}

func (p *parser) makeError(near string, err error) error {
	return &SyntaxError{Unit: p.unit, Line: p.lineCounter, Text: near, Err: err}
}
