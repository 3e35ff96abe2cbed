package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Errors reported while constructing or translating commands. Every error
// returned by this package wraps exactly one of them, so callers can test
// with errors.Is.
var (
	// ErrOperandRange reports an index, local count or argument count outside
	// its legal range.
	ErrOperandRange = errors.New("operand out of range")
	// ErrConstantPop reports a pop into the read-only constant segment.
	ErrConstantPop = errors.New("cannot write constant")
	// ErrSegmentBounds reports a pointer or temp index past the segment's size.
	ErrSegmentBounds = errors.New("out of segment bounds")
	// ErrUnrecognized reports a segment, operator or command outside the
	// fixed sets.
	ErrUnrecognized = errors.New("unrecognized construct")
)

// CommandError ties a translation failure to the command that caused it.
type CommandError struct {
	Position int
	Command  string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %d (%s): %v", e.Position, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
