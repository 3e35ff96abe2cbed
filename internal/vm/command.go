package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Scope is what a command needs to know about where it sits in the program.
type Scope struct {
	// Position is the command's ordinal in the full program, bootstrap
	// included. Internal labels are derived from it.
	Position int
	// Function is the name of the most recent function definition, or ""
	// before the first one.
	Function string
}

// Command is a single VM instruction. The set of implementations is closed
// to this package and every value is immutable once constructed.
type Command interface {
	fmt.Stringer
	// Render returns the assembly lines implementing the command.
	Render(scope Scope) ([]string, error)

	isCommand()
}

// Push copies segment[index] onto the stack.
type Push struct {
	segment Segment
	index   int
	unit    string
}

// NewPush returns a push of segment[index]. unit identifies the translation
// unit, which scopes the static segment.
func NewPush(segment Segment, index int, unit string) (Push, error) {
	if err := segment.check("push", index); err != nil {
		return Push{}, err
	}
	return Push{segment: segment, index: index, unit: unit}, nil
}

func (p Push) Segment() Segment { return p.segment }
func (p Push) Index() int       { return p.index }
func (p Push) Unit() string     { return p.unit }

func (p Push) String() string {
	return fmt.Sprintf("push %s %d", p.segment, p.index)
}

func (p Push) Render(Scope) ([]string, error) {
	return p.segment.PushCode(p.index, p.unit)
}

func (Push) isCommand() {}

// Pop moves the top of the stack into segment[index].
type Pop struct {
	segment Segment
	index   int
	unit    string
}

// NewPop returns a pop into segment[index]. Popping the constant segment is
// rejected.
func NewPop(segment Segment, index int, unit string) (Pop, error) {
	if err := segment.check("pop", index); err != nil {
		return Pop{}, err
	}
	return Pop{segment: segment, index: index, unit: unit}, nil
}

func (p Pop) Segment() Segment { return p.segment }
func (p Pop) Index() int       { return p.index }
func (p Pop) Unit() string     { return p.unit }

func (p Pop) String() string {
	return fmt.Sprintf("pop %s %d", p.segment, p.index)
}

func (p Pop) Render(Scope) ([]string, error) {
	return p.segment.PopCode(p.index, p.unit)
}

func (Pop) isCommand() {}

// checkCount validates a count operand such as a local or argument count.
func checkCount(what string, n, max int) error {
	if n < 0 || n > max {
		return errors.Wrapf(ErrOperandRange, "%s %d: must be within 0..%d", what, n, max)
	}
	return nil
}
