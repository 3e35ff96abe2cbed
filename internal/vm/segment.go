package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// MaxIndex is the largest operand an A-instruction can load.
const MaxIndex = 0x7FFF

type segmentKind int

const (
	invalidSegment segmentKind = iota
	constantSegment
	staticSegment
	// indexed off a base pointer held in a register
	baseSegment
	// fixed-size window into low memory
	fixedSegment
)

// Segment is one of the eight VM addressing spaces. The zero value is not a
// valid segment.
type Segment struct {
	name     string
	kind     segmentKind
	register string
	base     int
	size     int
}

var (
	Constant = Segment{name: "constant", kind: constantSegment}
	Static   = Segment{name: "static", kind: staticSegment}
	Local    = Segment{name: "local", kind: baseSegment, register: "LCL"}
	Argument = Segment{name: "argument", kind: baseSegment, register: "ARG"}
	This     = Segment{name: "this", kind: baseSegment, register: "THIS"}
	That     = Segment{name: "that", kind: baseSegment, register: "THAT"}
	Pointer  = Segment{name: "pointer", kind: fixedSegment, base: 3, size: 2}
	Temp     = Segment{name: "temp", kind: fixedSegment, base: 5, size: 8}
)

var segmentsByName = map[string]Segment{
	Constant.name: Constant,
	Static.name:   Static,
	Local.name:    Local,
	Argument.name: Argument,
	This.name:     This,
	That.name:     That,
	Pointer.name:  Pointer,
	Temp.name:     Temp,
}

// SegmentByName returns the segment with the given VM name.
func SegmentByName(name string) (Segment, error) {
	s, ok := segmentsByName[name]
	if !ok {
		return Segment{}, errors.Wrapf(ErrUnrecognized, "segment %q", name)
	}
	return s, nil
}

func (s Segment) String() string {
	return s.name
}

// Size returns the number of words in a fixed segment, or 0 for segments
// bounded only by MaxIndex.
func (s Segment) Size() int {
	return s.size
}

// Writable reports whether values can be popped into the segment.
func (s Segment) Writable() bool {
	return s.kind != constantSegment && s.kind != invalidSegment
}

// check validates an access before any code is generated for it.
func (s Segment) check(op string, index int) error {
	where := fmt.Sprintf("%s %s %d", op, s.name, index)
	switch {
	case s.kind == invalidSegment:
		return errors.Wrapf(ErrUnrecognized, "%s: invalid segment", where)
	case index < 0 || index > MaxIndex:
		return errors.Wrapf(ErrOperandRange, "%s: index must be within 0..%d", where, MaxIndex)
	case op == "pop" && s.kind == constantSegment:
		return errors.Wrap(ErrConstantPop, where)
	case s.kind == fixedSegment && index >= s.size:
		return errors.Wrapf(ErrSegmentBounds, "%s: %q segment holds %d words", where, s.name, s.size)
	}
	return nil
}

// PushCode returns the instructions pushing segment[index] onto the stack.
// unit names the translation unit and is only used by the static segment.
func (s Segment) PushCode(index int, unit string) ([]string, error) {
	if err := s.check("push", index); err != nil {
		return nil, err
	}
	var read []string
	switch s.kind {
	case constantSegment:
		read = []string{atInt(index), "D=A"}
	case staticSegment:
		read = []string{at(staticSymbol(unit, index)), "D=M"}
	case baseSegment:
		read = []string{at(s.register), "D=M", atInt(index), "A=D+A", "D=M"}
	case fixedSegment:
		read = []string{atInt(s.base + index), "D=M"}
	}
	return seq(read, pushD), nil
}

// PopCode returns the instructions popping the stack into segment[index].
func (s Segment) PopCode(index int, unit string) ([]string, error) {
	if err := s.check("pop", index); err != nil {
		return nil, err
	}
	switch s.kind {
	case staticSegment:
		return seq(popD, []string{at(staticSymbol(unit, index)), "M=D"}), nil
	case fixedSegment:
		return seq(popD, []string{atInt(s.base + index), "M=D"}), nil
	default:
		// The target address is computed before the pop so that D is free
		// to carry the value.
		target := []string{at(s.register), "D=M", atInt(index), "D=D+A", at(scratchRegister), "M=D"}
		store := []string{at(scratchRegister), "A=M", "M=D"}
		return seq(target, popD, store), nil
	}
}

func staticSymbol(unit string, index int) string {
	return fmt.Sprintf("%s.%d", unit, index)
}
