// Package hackasm is a two-pass assembler for Hack assembly.
//
// The most ambiguous instruction is the A instruction. It is written as
// @something but has several forms:
//   - @10 (decimal value) loads the value into the A register.
//   - @label loads the instruction address of label. Labels may be used
//     before they are declared.
//   - @R0..@R15, @SP, @LCL, @ARG, @THIS, @THAT, @SCREEN and @KBD load a
//     predefined address.
//   - @variable loads the data address of variable, allocating one from 16
//     upwards on first use.
package hackasm

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/xiaobogaga/hackvm/util"
)

// MaxConstant is the largest value an A instruction can hold.
const MaxConstant = 0x7FFF

// firstVariableAddr is where variable allocation starts, right after R15.
const firstVariableAddr = 16

var predefinedSymbols = map[string]int{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"R0":     0,
	"R1":     1,
	"R2":     2,
	"R3":     3,
	"R4":     4,
	"R5":     5,
	"R6":     6,
	"R7":     7,
	"R8":     8,
	"R9":     9,
	"R10":    10,
	"R11":    11,
	"R12":    12,
	"R13":    13,
	"R14":    14,
	"R15":    15,
	"SCREEN": 16384,
	"KBD":    24576,
}

var compCodes = map[string]string{
	"0":   "0101010",
	"1":   "0111111",
	"-1":  "0111010",
	"D":   "0001100",
	"A":   "0110000",
	"!D":  "0001101",
	"!A":  "0110001",
	"-D":  "0001111",
	"-A":  "0110011",
	"D+1": "0011111",
	"1+D": "0011111",
	"A+1": "0110111",
	"1+A": "0110111",
	"D-1": "0001110",
	"A-1": "0110010",
	"D+A": "0000010",
	"A+D": "0000010",
	"D-A": "0010011",
	"A-D": "0000111",
	"D&A": "0000000",
	"A&D": "0000000",
	"D|A": "0010101",
	"A|D": "0010101",
	"M":   "1110000",
	"!M":  "1110001",
	"-M":  "1110011",
	"M+1": "1110111",
	"1+M": "1110111",
	"M-1": "1110010",
	"D+M": "1000010",
	"M+D": "1000010",
	"D-M": "1010011",
	"M-D": "1000111",
	"D&M": "1000000",
	"M&D": "1000000",
	"D|M": "1010101",
	"M|D": "1010101",
}

var destCodes = map[string]string{
	"M":   "001",
	"D":   "010",
	"MD":  "011",
	"DM":  "011",
	"A":   "100",
	"AM":  "101",
	"MA":  "101",
	"AD":  "110",
	"DA":  "110",
	"AMD": "111",
	"ADM": "111",
	"DAM": "111",
	"DMA": "111",
	"MAD": "111",
	"MDA": "111",
}

var jumpCodes = map[string]string{
	"JGT": "001",
	"JEQ": "010",
	"JGE": "011",
	"JLT": "100",
	"JNE": "101",
	"JLE": "110",
	"JMP": "111",
}

// InstructionType tells how an instruction's word was produced.
type InstructionType int

const (
	AConstant InstructionType = iota
	ALabel
	AVariable
	CInstruction
)

// Instruction is one machine word together with the source it came from.
type Instruction struct {
	Tp              InstructionType
	Word            uint16
	Line            int
	OriginalContent string
}

func (ins Instruction) String() string {
	return fmt.Sprintf("Instruction: {Tp: %d, Code: %s, Line: %d, OriginalContent: %s}", ins.Tp, ins.Code(),
		ins.Line, ins.OriginalContent)
}

// Code returns the word as 16 binary digits, the .hack file format.
func (ins Instruction) Code() string {
	return formatCode(ins.Word)
}

type symbolLocation struct {
	symbol string
	index  int
}

// Assembler turns Hack assembly into machine words. An Assembler is meant for
// a single Parse call.
type Assembler struct {
	line             int
	labelLocationMap map[string]int
	symbolLocations  []symbolLocation
	instructions     []Instruction
}

func New() *Assembler {
	return &Assembler{
		line:             1,
		labelLocationMap: map[string]int{},
	}
}

// Assemble is a shortcut for New().Parse followed by Words.
func Assemble(rd io.Reader) ([]uint16, error) {
	instructions, err := New().Parse(rd)
	if err != nil {
		return nil, err
	}
	return Words(instructions), nil
}

// Parse reads the whole source and returns one instruction per machine word.
// Labels and variables are resolved once all of the input has been read.
func (asm *Assembler) Parse(rd io.Reader) ([]Instruction, error) {
	reader := bufio.NewReader(rd)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "read assembly")
		}
		if trimmed, ok := trimLine(line); ok {
			if terr := asm.transformLine(trimmed); terr != nil {
				return nil, terr
			}
		}
		if err == io.EOF {
			break
		}
		asm.line++
	}
	asm.resolveSymbols()
	return asm.instructions, nil
}

// resolveSymbols patches the @label and @variable instructions, whose
// addresses are only known after every label declaration has been seen.
func (asm *Assembler) resolveSymbols() {
	variables := map[string]int{}
	next := firstVariableAddr
	for _, loc := range asm.symbolLocations {
		ins := &asm.instructions[loc.index]
		if addr, ok := asm.labelLocationMap[loc.symbol]; ok {
			ins.Tp = ALabel
			ins.Word = uint16(addr)
			continue
		}
		addr, ok := variables[loc.symbol]
		if !ok {
			addr = next
			variables[loc.symbol] = addr
			next++
		}
		ins.Tp = AVariable
		ins.Word = uint16(addr)
	}
}

// trimLine removes spaces and comments and reports whether anything is left.
func trimLine(line []byte) ([]byte, bool) {
	if index := bytes.Index(line, []byte("//")); index != -1 {
		line = line[:index]
	}
	line = bytes.TrimSpace(line)
	return line, len(line) > 0
}

func (asm *Assembler) transformLine(line []byte) error {
	switch line[0] {
	case '@':
		return asm.transformACommand(line)
	case '(':
		return asm.transformLabelCommand(line)
	default:
		return asm.transformCCommand(line)
	}
}

func (asm *Assembler) transformACommand(line []byte) error {
	originalContent := string(line)
	operand := string(line[1:])
	if operand == "" {
		return asm.makeSyntaxErr("missing A instruction operand")
	}
	if operand[0] >= '0' && operand[0] <= '9' {
		value, err := strconv.Atoi(operand)
		if err != nil {
			return asm.makeSyntaxErr("wrong decimal value format")
		}
		if value > MaxConstant {
			return asm.makeSyntaxErr(fmt.Sprintf("constant %d out of range", value))
		}
		asm.emit(AConstant, uint16(value), originalContent)
		return nil
	}
	if addr, ok := predefinedSymbols[operand]; ok {
		asm.emit(AVariable, uint16(addr), originalContent)
		return nil
	}
	if !util.IsSymbol(operand) {
		return asm.makeSyntaxErr("wrong variable or label format")
	}
	// Placeholder until resolveSymbols runs.
	asm.symbolLocations = append(asm.symbolLocations, symbolLocation{
		symbol: operand,
		index:  len(asm.instructions),
	})
	asm.emit(ALabel, 0, originalContent)
	return nil
}

// transformLabelCommand records the address of the next instruction under a
// (label) declaration. Labels take no room in the output.
func (asm *Assembler) transformLabelCommand(line []byte) error {
	if line[len(line)-1] != ')' {
		return asm.makeSyntaxErr("wrong label format")
	}
	label := string(line[1 : len(line)-1])
	if !util.IsSymbol(label) {
		return asm.makeSyntaxErr("wrong label format")
	}
	if _, ok := predefinedSymbols[label]; ok {
		return asm.makeSyntaxErr(fmt.Sprintf("label %s shadows a predefined symbol", label))
	}
	if _, exist := asm.labelLocationMap[label]; exist {
		return asm.makeSyntaxErr(fmt.Sprintf("found duplicate label %s", label))
	}
	asm.labelLocationMap[label] = len(asm.instructions)
	return nil
}

// transformCCommand handles dest=comp;jump where dest and jump are optional.
func (asm *Assembler) transformCCommand(line []byte) error {
	originalContent := string(line)
	destCode, line, err := asm.parseDest(line)
	if err != nil {
		return err
	}
	jumpCode, line, err := asm.parseJump(line)
	if err != nil {
		return err
	}
	compCode, ok := compCodes[string(line)]
	if !ok {
		return asm.makeSyntaxErr(fmt.Sprintf("wrong c command of comp code format near %s", originalContent))
	}
	word, err := strconv.ParseUint("111"+compCode+destCode+jumpCode, 2, 16)
	if err != nil {
		return asm.makeSyntaxErr(err.Error())
	}
	asm.emit(CInstruction, uint16(word), originalContent)
	return nil
}

func (asm *Assembler) parseDest(line []byte) (string, []byte, error) {
	eq := bytes.IndexByte(line, '=')
	if eq == -1 {
		return "000", line, nil
	}
	code, ok := destCodes[string(line[:eq])]
	if !ok {
		return "", nil, asm.makeSyntaxErr(fmt.Sprintf("wrong c command of dest code format near %s", line))
	}
	return code, line[eq+1:], nil
}

func (asm *Assembler) parseJump(line []byte) (string, []byte, error) {
	semi := bytes.IndexByte(line, ';')
	if semi == -1 {
		return "000", line, nil
	}
	code, ok := jumpCodes[string(line[semi+1:])]
	if !ok {
		return "", nil, asm.makeSyntaxErr(fmt.Sprintf("wrong c command of jump code format near %s", line))
	}
	return code, line[:semi], nil
}

func (asm *Assembler) emit(tp InstructionType, word uint16, originalContent string) {
	asm.instructions = append(asm.instructions, Instruction{
		Tp:              tp,
		Word:            word,
		Line:            asm.line,
		OriginalContent: originalContent,
	})
}

func (asm *Assembler) makeSyntaxErr(msg string) error {
	return errors.Errorf("syntax err at line %d: %s", asm.line, msg)
}

// formatCode renders a word as 16 binary digits, most significant first.
func formatCode(word uint16) string {
	var code [16]byte
	for j := 15; j >= 0; j-- {
		code[j] = byte(word&1) + '0'
		word >>= 1
	}
	return string(code[:])
}

// Words returns the machine words of instructions.
func Words(instructions []Instruction) []uint16 {
	words := make([]uint16, len(instructions))
	for i, ins := range instructions {
		words[i] = ins.Word
	}
	return words
}

// Format writes one 16-digit binary line per instruction.
func Format(w io.Writer, instructions []Instruction) error {
	bw := bufio.NewWriter(w)
	for _, ins := range instructions {
		if _, err := fmt.Fprintln(bw, ins.Code()); err != nil {
			return errors.Wrap(err, "write machine code")
		}
	}
	return errors.Wrap(bw.Flush(), "write machine code")
}
