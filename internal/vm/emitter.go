package vm

import (
	"strings"

	"github.com/pkg/errors"
)

// DefaultEntry is the function a bootstrapped program starts in.
const DefaultEntry = "Sys.init"

// Program is an ordered sequence of commands, usually the concatenation of
// every translation unit of a program.
type Program []Command

// WithBootstrap returns a copy of p preceded by the entry sequence that
// sets up the stack and calls entry.
func (p Program) WithBootstrap(entry string) Program {
	out := make(Program, 0, len(p)+1)
	out = append(out, NewBootstrap(entry))
	return append(out, p...)
}

// Translate renders every command in order. Each command's block starts with
// a comment echoing the command. Translation stops at the first failing
// command and returns no text.
func (p Program) Translate() (string, error) {
	var out strings.Builder
	scope := Scope{}
	for i, cmd := range p {
		scope.Position = i
		if cmd == nil {
			return "", &CommandError{Position: i, Command: "<nil>", Err: errors.Wrap(ErrUnrecognized, "nil command")}
		}
		if f, ok := cmd.(Function); ok {
			scope.Function = f.name
		}
		code, err := cmd.Render(scope)
		if err != nil {
			return "", &CommandError{Position: i, Command: cmd.String(), Err: err}
		}
		out.WriteString(comment(cmd))
		out.WriteByte('\n')
		for _, line := range code {
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.String(), nil
}

// Translate renders cmds with the bootstrap calling entry in front.
func Translate(entry string, cmds []Command) (string, error) {
	return Program(cmds).WithBootstrap(entry).Translate()
}
