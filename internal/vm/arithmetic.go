package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Op identifies an arithmetic or logical command.
type Op int

const (
	invalidOp Op = iota
	Add
	Sub
	Neg
	Eq
	Gt
	Lt
	And
	Or
	Not
)

var opNames = map[Op]string{
	Add: "add",
	Sub: "sub",
	Neg: "neg",
	Eq:  "eq",
	Gt:  "gt",
	Lt:  "lt",
	And: "and",
	Or:  "or",
	Not: "not",
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Binary reports whether the op consumes two operands.
func (op Op) Binary() bool {
	return op != Neg && op != Not
}

// binaryHeader pops the top into D and leaves A pointing at the second
// operand, which becomes the new top.
var binaryHeader = []string{
	"@SP",
	"AM=M-1",
	"D=M",
	"A=A-1",
}

var unaryHeader = []string{
	"@SP",
	"A=M-1",
}

// combine holds the final instruction of the ops that work in place.
var combine = map[Op]string{
	Add: "M=D+M",
	Sub: "M=M-D",
	And: "M=D&M",
	Or:  "M=D|M",
	Neg: "M=-M",
	Not: "M=!M",
}

// Comparisons compute D = top - second. With x below y on the stack that is
// y - x, so x > y holds exactly when y - x < 0.
var comparisonJumps = map[Op]string{
	Eq: "JEQ",
	Gt: "JLT",
	Lt: "JGT",
}

// Arithmetic is one of the nine stack arithmetic and logical commands.
type Arithmetic struct {
	op Op
}

// NewArithmetic returns the command for op.
func NewArithmetic(op Op) (Arithmetic, error) {
	if _, ok := opNames[op]; !ok {
		return Arithmetic{}, errors.Wrapf(ErrUnrecognized, "arithmetic op %d", int(op))
	}
	return Arithmetic{op: op}, nil
}

// ArithmeticByName returns the command spelled name in VM source.
func ArithmeticByName(name string) (Arithmetic, error) {
	op, ok := opsByName[name]
	if !ok {
		return Arithmetic{}, errors.Wrapf(ErrUnrecognized, "arithmetic command %q", name)
	}
	return Arithmetic{op: op}, nil
}

func (a Arithmetic) Op() Op { return a.op }

func (a Arithmetic) String() string {
	return a.op.String()
}

func (a Arithmetic) Render(scope Scope) ([]string, error) {
	if jump, ok := comparisonJumps[a.op]; ok {
		return compare(jump, scope.Position), nil
	}
	last, ok := combine[a.op]
	if !ok {
		return nil, errors.Wrapf(ErrUnrecognized, "arithmetic op %d", int(a.op))
	}
	if a.op.Binary() {
		return seq(binaryHeader, []string{last}), nil
	}
	return seq(unaryHeader, []string{last}), nil
}

func (Arithmetic) isCommand() {}

// compare writes -1 (true) or 0 (false) in place of the two operands.
func compare(jump string, position int) []string {
	isTrue, end := comparisonLabels(position)
	return seq(binaryHeader, []string{
		"D=D-M",
		at(isTrue),
		"D;" + jump,
		"D=0",
		at(end),
		"0;JMP",
		declare(isTrue),
		"D=-1",
		declare(end),
		"@SP",
		"A=M-1",
		"M=D",
	})
}

func comparisonLabels(position int) (isTrue, end string) {
	return fmt.Sprintf("CMP%d.TRUE", position), fmt.Sprintf("CMP%d.END", position)
}
