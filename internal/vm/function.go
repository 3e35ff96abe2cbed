package vm

import (
	"fmt"
	"strings"
)

const (
	// MaxLocals is the largest local variable count a function may declare.
	MaxLocals = 1024
	// MaxArgs keeps the ARG offset (args + frame size) within an A-instruction.
	MaxArgs = MaxIndex - frameSize

	// frameSize counts the return address and the four saved segment
	// pointers pushed by a call.
	frameSize = 5
)

// savedFrame lists the registers a call saves, in push order.
var savedFrame = []string{"LCL", "ARG", "THIS", "THAT"}

// FunctionLabel returns the entry label of a function. It depends only on
// the function's name.
func FunctionLabel(name string) string {
	return "F" + name
}

// Function declares a function entry point and allocates its locals.
type Function struct {
	name   string
	locals int
}

// NewFunction returns a definition of name with locals zeroed local slots.
func NewFunction(name string, locals int) (Function, error) {
	if err := checkCount(fmt.Sprintf("function %s: local count", name), locals, MaxLocals); err != nil {
		return Function{}, err
	}
	return Function{name: name, locals: locals}, nil
}

func (f Function) Name() string { return f.name }
func (f Function) Locals() int  { return f.locals }

func (f Function) String() string {
	return fmt.Sprintf("function %s %d", f.name, f.locals)
}

// Render zeroes the locals by walking A up the stack and then stores A as
// the new SP.
func (f Function) Render(Scope) ([]string, error) {
	code := make([]string, 0, 5+2*f.locals)
	code = append(code, declare(FunctionLabel(f.name)), "@SP", "A=M")
	for i := 0; i < f.locals; i++ {
		code = append(code, "M=0", "A=A+1")
	}
	return append(code, "D=A", "@SP", "M=D"), nil
}

func (Function) isCommand() {}

// Call invokes a function with args values already pushed.
type Call struct {
	name string
	args int
}

// NewCall returns a call of name with args arguments.
func NewCall(name string, args int) (Call, error) {
	if err := checkCount(fmt.Sprintf("call %s: argument count", name), args, MaxArgs); err != nil {
		return Call{}, err
	}
	return Call{name: name, args: args}, nil
}

func (c Call) Name() string { return c.name }
func (c Call) Args() int    { return c.args }

func (c Call) String() string {
	return fmt.Sprintf("call %s %d", c.name, c.args)
}

func (c Call) Render(scope Scope) ([]string, error) {
	ret := ReturnLabel(scope.Position)
	return seq(
		pushReturnAddress(ret),
		saveFrame(),
		repositionArg(c.args),
		repositionLocal(),
		jumpTo(FunctionLabel(c.name)),
		[]string{declare(ret)},
	), nil
}

func (Call) isCommand() {}

// ReturnLabel returns the resumption label of the call at position.
func ReturnLabel(position int) string {
	return fmt.Sprintf("CALL%d.RET", position)
}

func pushReturnAddress(label string) []string {
	return seq([]string{at(label), "D=A"}, pushD)
}

func saveFrame() []string {
	var code []string
	for _, reg := range savedFrame {
		code = append(code, at(reg), "D=M")
		code = append(code, pushD...)
	}
	return code
}

// repositionArg points ARG at the first of the args pushed before the frame.
func repositionArg(args int) []string {
	return []string{atInt(args + frameSize), "D=A", "@SP", "D=M-D", "@ARG", "M=D"}
}

func repositionLocal() []string {
	return []string{"@SP", "D=M", "@LCL", "M=D"}
}

func jumpTo(label string) []string {
	return []string{at(label), "0;JMP"}
}

// Return hands the top of the stack back to the caller and restores the
// caller's frame.
type Return struct{}

func NewReturn() Return { return Return{} }

func (Return) String() string { return "return" }

func (Return) Render(Scope) ([]string, error) {
	return seq(
		storeReturnValue(),
		saveCallerArg(),
		resetStackToLocal(),
		restoreFrame(),
		recoverReturnAddress(),
		restoreStackPointer(),
		writeReturnValue(),
		jumpToReturnAddress(),
	), nil
}

func (Return) isCommand() {}

func storeReturnValue() []string {
	return seq(popD, []string{at(scratchRegister), "M=D"})
}

// saveCallerArg keeps ARG, which locates the caller's stack top, before the
// frame restore overwrites it.
func saveCallerArg() []string {
	return []string{"@ARG", "D=M", at(savedArgRegister), "M=D"}
}

func resetStackToLocal() []string {
	return []string{"@LCL", "D=M", "@SP", "M=D"}
}

// restoreFrame pops the saved registers in reverse push order.
func restoreFrame() []string {
	var code []string
	for i := len(savedFrame) - 1; i >= 0; i-- {
		code = append(code, popD...)
		code = append(code, at(savedFrame[i]), "M=D")
	}
	return code
}

func recoverReturnAddress() []string {
	return seq(popD, []string{at(returnAddressRegister), "M=D"})
}

func restoreStackPointer() []string {
	return []string{at(savedArgRegister), "D=M", "@SP", "M=D+1"}
}

func writeReturnValue() []string {
	return []string{at(scratchRegister), "D=M", "@SP", "A=M-1", "M=D"}
}

func jumpToReturnAddress() []string {
	return []string{at(returnAddressRegister), "A=M", "0;JMP"}
}

// HaltLabel is the idle loop entered if the entry function ever returns.
const HaltLabel = "BOOTSTRAP.HALT"

// Bootstrap initializes SP and calls the program's entry function with no
// arguments. It is never written by users.
type Bootstrap struct {
	entry Call
}

// NewBootstrap returns the entry sequence calling entry.
func NewBootstrap(entry string) Bootstrap {
	return Bootstrap{entry: Call{name: entry}}
}

func (b Bootstrap) Entry() string { return b.entry.name }

func (b Bootstrap) String() string {
	return "bootstrap " + b.entry.name
}

func (b Bootstrap) Render(scope Scope) ([]string, error) {
	call, err := b.entry.Render(scope)
	if err != nil {
		return nil, err
	}
	return seq(
		[]string{atInt(StackBase), "D=A", "@SP", "M=D"},
		[]string{comment(b.entry)},
		call,
		[]string{declare(HaltLabel), at(HaltLabel), "0;JMP"},
	), nil
}

func (Bootstrap) isCommand() {}

func comment(c Command) string {
	return "// " + strings.TrimSpace(c.String())
}
