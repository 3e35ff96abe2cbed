package vm

import "strconv"

// Low-memory registers used by generated code. They are addressed by name
// and never through the pointer or temp segments.
const (
	returnAddressRegister = "R13"
	savedArgRegister      = "R14"
	scratchRegister       = "R15"
)

// StackBase is the first address of the stack region.
const StackBase = 256

var (
	// pushD pushes the D register onto the stack.
	pushD = []string{
		"@SP",
		"AM=M+1",
		"A=A-1",
		"M=D",
	}
	// popD pops the top of the stack into D.
	popD = []string{
		"@SP",
		"AM=M-1",
		"D=M",
	}
)

func at(symbol string) string {
	return "@" + symbol
}

func atInt(value int) string {
	return "@" + strconv.Itoa(value)
}

func declare(symbol string) string {
	return "(" + symbol + ")"
}

// seq concatenates instruction fragments into a fresh slice.
func seq(parts ...[]string) []string {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
