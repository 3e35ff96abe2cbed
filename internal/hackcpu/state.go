package hackcpu

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// maxStackRows caps how many stack words StateTable prints.
const maxStackRows = 32

var compMnemonics = map[uint16]string{
	0x2A: "0",
	0x3F: "1",
	0x3A: "-1",
	0x0C: "D",
	0x30: "A",
	0x0D: "!D",
	0x31: "!A",
	0x0F: "-D",
	0x33: "-A",
	0x1F: "D+1",
	0x37: "A+1",
	0x0E: "D-1",
	0x32: "A-1",
	0x02: "D+A",
	0x13: "D-A",
	0x07: "A-D",
	0x00: "D&A",
	0x15: "D|A",
}

var destMnemonics = [8]string{"", "M", "D", "MD", "A", "AM", "AD", "AMD"}

var jumpMnemonics = [8]string{"", "JGT", "JEQ", "JGE", "JLT", "JNE", "JLE", "JMP"}

// Disassemble returns the assembly spelling of one machine word.
func Disassemble(ins uint16) string {
	if ins&0x8000 == 0 {
		return fmt.Sprintf("@%d", ins)
	}
	comp, ok := compMnemonics[ins>>6&0x3F]
	if !ok {
		return fmt.Sprintf("?%016b", ins)
	}
	if ins&0x1000 != 0 {
		comp = replaceA(comp)
	}
	s := comp
	if d := destMnemonics[ins>>3&7]; d != "" {
		s = d + "=" + s
	}
	if j := jumpMnemonics[ins&7]; j != "" {
		s += ";" + j
	}
	return s
}

func replaceA(comp string) string {
	b := []byte(comp)
	for i := range b {
		if b[i] == 'A' {
			b[i] = 'M'
		}
	}
	return string(b)
}

// StateTable renders the registers, the segment pointers and the top of the
// stack for humans.
func (c *CPU) StateTable() string {
	regs := table.NewWriter()
	regs.SetTitle("Registers")
	regs.AppendHeader(table.Row{"PC", "A", "D", "SP", "LCL", "ARG", "THIS", "THAT", "Cycles", "Halted"})
	regs.AppendRow(table.Row{
		c.PC, c.A, c.D,
		c.RAM[SP], c.RAM[LCL], c.RAM[ARG], c.RAM[THIS], c.RAM[THAT],
		c.Cycles, c.halted,
	})

	stack := table.NewWriter()
	stack.SetTitle("Stack")
	stack.AppendHeader(table.Row{"Address", "Value"})
	words := c.Stack()
	first := 0
	if len(words) > maxStackRows {
		first = len(words) - maxStackRows
	}
	for i := first; i < len(words); i++ {
		stack.AppendRow(table.Row{StackBase + i, words[i]})
	}

	return regs.Render() + "\n" + stack.Render()
}
