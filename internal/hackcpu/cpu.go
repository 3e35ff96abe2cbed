// Package hackcpu emulates the Hack CPU closely enough to execute the output
// of the assembler: 15-bit instruction and data addresses, the six-bit ALU,
// and the A, D and PC registers.
package hackcpu

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// Well-known RAM addresses.
const (
	SP   = 0
	LCL  = 1
	ARG  = 2
	THIS = 3
	THAT = 4

	StackBase = 256
	RAMSize   = 0x8000
)

// LevelTrace is the level single-instruction traces are logged at.
const LevelTrace = slog.LevelDebug - 4

const defaultMaxCycles = 1000000

var (
	// ErrFault reports an illegal instruction or memory access.
	ErrFault = errors.New("machine fault")
	// ErrCycleLimit reports that Run gave up before the program stopped.
	ErrCycleLimit = errors.New("cycle limit reached")
)

// CPU is a Hack machine with its program loaded.
type CPU struct {
	A      int16
	D      int16
	PC     int
	RAM    []int16
	ROM    []uint16
	Cycles int

	maxCycles int
	halted    bool
	logger    *slog.Logger
}

// Option configures a CPU.
type Option func(*CPU) error

// MaxCycles bounds the number of instructions Run executes. n <= 0 removes
// the bound.
func MaxCycles(n int) Option {
	return func(c *CPU) error {
		c.maxCycles = n
		return nil
	}
}

// Preset stores values in RAM starting at addr before execution.
func Preset(addr int, values ...int16) Option {
	return func(c *CPU) error {
		if addr < 0 || addr+len(values) > len(c.RAM) {
			return errors.Errorf("preset %d words at %d: outside RAM", len(values), addr)
		}
		copy(c.RAM[addr:], values)
		return nil
	}
}

// Trace logs every executed instruction at LevelTrace.
func Trace(logger *slog.Logger) Option {
	return func(c *CPU) error {
		c.logger = logger
		return nil
	}
}

// New returns a CPU with rom loaded, all registers and RAM zeroed, and opts
// applied in order.
func New(rom []uint16, opts ...Option) (*CPU, error) {
	c := &CPU{
		RAM:       make([]int16, RAMSize),
		ROM:       rom,
		maxCycles: defaultMaxCycles,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Halted reports whether the program entered an idle loop of the form
// (L) @L 0;JMP.
func (c *CPU) Halted() bool {
	return c.halted
}

// Run executes instructions until the program halts, runs past the end of
// ROM, or the cycle limit is hit.
func (c *CPU) Run() (err error) {
	defer func() {
		if e := recover(); e != nil {
			switch e := e.(type) {
			case error:
				err = errors.Wrapf(ErrFault, "recovered %v @pc=%d/%d", e, c.PC, len(c.ROM))
			default:
				panic(e)
			}
		}
	}()
	for !c.halted && c.PC < len(c.ROM) {
		if c.maxCycles > 0 && c.Cycles >= c.maxCycles {
			return errors.Wrapf(ErrCycleLimit, "after %d cycles @pc=%d", c.Cycles, c.PC)
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes the instruction at PC.
func (c *CPU) Step() error {
	if c.PC < 0 || c.PC >= len(c.ROM) {
		return errors.Wrapf(ErrFault, "pc %d outside ROM of %d words", c.PC, len(c.ROM))
	}
	ins := c.ROM[c.PC]
	c.Cycles++
	if c.logger != nil {
		c.logger.Log(context.Background(), LevelTrace, "step",
			slog.Int("pc", c.PC),
			slog.String("ins", Disassemble(ins)),
			slog.Int("a", int(c.A)),
			slog.Int("d", int(c.D)))
	}
	if ins&0x8000 == 0 {
		c.A = int16(ins)
		c.PC++
		return nil
	}
	if ins&0xE000 != 0xE000 {
		return errors.Wrapf(ErrFault, "illegal instruction %016b @pc=%d", ins, c.PC)
	}

	addr := c.A
	y := c.A
	if ins&0x1000 != 0 {
		v, err := c.load(addr)
		if err != nil {
			return err
		}
		y = v
	}
	out := alu(c.D, y, ins>>6&0x3F)

	dest := ins >> 3 & 7
	if dest&1 != 0 {
		if err := c.store(addr, out); err != nil {
			return err
		}
	}
	if dest&2 != 0 {
		c.D = out
	}
	if dest&4 != 0 {
		c.A = out
	}

	jump := ins & 7
	if (jump&4 != 0 && out < 0) || (jump&2 != 0 && out == 0) || (jump&1 != 0 && out > 0) {
		target := int(uint16(addr))
		if jump == 7 && target == c.PC-1 && c.ROM[target] == uint16(target) {
			c.halted = true
		}
		c.PC = target
		return nil
	}
	c.PC++
	return nil
}

func (c *CPU) load(addr int16) (int16, error) {
	if addr < 0 || int(addr) >= len(c.RAM) {
		return 0, errors.Wrapf(ErrFault, "read of address %d @pc=%d", uint16(addr), c.PC)
	}
	return c.RAM[addr], nil
}

func (c *CPU) store(addr int16, v int16) error {
	if addr < 0 || int(addr) >= len(c.RAM) {
		return errors.Wrapf(ErrFault, "write of address %d @pc=%d", uint16(addr), c.PC)
	}
	c.RAM[addr] = v
	return nil
}

// alu computes the Hack ALU function selected by the six control bits
// zx nx zy ny f no.
func alu(x, y int16, ctrl uint16) int16 {
	if ctrl&0x20 != 0 {
		x = 0
	}
	if ctrl&0x10 != 0 {
		x = ^x
	}
	if ctrl&0x08 != 0 {
		y = 0
	}
	if ctrl&0x04 != 0 {
		y = ^y
	}
	var out int16
	if ctrl&0x02 != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if ctrl&0x01 != 0 {
		out = ^out
	}
	return out
}

// Stack returns a copy of the words between the stack base and SP.
func (c *CPU) Stack() []int16 {
	sp := int(c.RAM[SP])
	if sp < StackBase || sp > len(c.RAM) {
		return nil
	}
	out := make([]int16, sp-StackBase)
	copy(out, c.RAM[StackBase:sp])
	return out
}
