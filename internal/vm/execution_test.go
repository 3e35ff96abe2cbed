package vm_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaobogaga/hackvm/internal/hackasm"
	"github.com/xiaobogaga/hackvm/internal/hackcpu"
	"github.com/xiaobogaga/hackvm/internal/vm"
	"github.com/xiaobogaga/hackvm/internal/vmparser"
)

// Segment bases preset for programs run without a bootstrap.
const (
	localBase = 300
	argBase   = 400
	thisBase  = 3000
	thatBase  = 3010
)

func parse(unit, source string) []vm.Command {
	cmds, err := vmparser.ParseString(unit, source)
	Expect(err).NotTo(HaveOccurred())
	return cmds
}

func execute(program vm.Program, opts ...hackcpu.Option) *hackcpu.CPU {
	asm, err := program.Translate()
	Expect(err).NotTo(HaveOccurred())
	rom, err := hackasm.Assemble(strings.NewReader(asm))
	Expect(err).NotTo(HaveOccurred())
	c, err := hackcpu.New(rom, opts...)
	Expect(err).NotTo(HaveOccurred())
	Expect(c.Run()).To(Succeed())
	return c
}

// run executes source as a single unit starting from an empty stack with
// the segment pointers preset.
func run(source string) *hackcpu.CPU {
	return execute(vm.Program(parse("Test", source)),
		hackcpu.Preset(hackcpu.SP, vm.StackBase, localBase, argBase, thisBase, thatBase))
}

// pushValue returns VM code pushing v, which may be negative.
func pushValue(v int) string {
	if v < 0 {
		return fmt.Sprintf("push constant %d\nneg\n", -v)
	}
	return fmt.Sprintf("push constant %d\n", v)
}

func expectSegmentsRestored(c *hackcpu.CPU) {
	Expect(c.RAM[hackcpu.LCL]).To(Equal(int16(localBase)))
	Expect(c.RAM[hackcpu.ARG]).To(Equal(int16(argBase)))
	Expect(c.RAM[hackcpu.THIS]).To(Equal(int16(thisBase)))
	Expect(c.RAM[hackcpu.THAT]).To(Equal(int16(thatBase)))
}

var _ = Describe("Generated code", func() {
	Context("Stack arithmetic", func() {
		It("should leave 5 after push 2, push 3, add", func() {
			c := run("push constant 2\npush constant 3\nadd\n")
			Expect(c.Stack()).To(Equal([]int16{5}))
		})

		DescribeTable("stack depth",
			func(source string, before, after int) {
				c := run(source)
				Expect(c.Stack()).To(HaveLen(after))
				Expect(after - before).To(BeNumerically("<=", 1))
			},
			Entry("push", "push constant 1\npush constant 2\n", 1, 2),
			Entry("pop", "push constant 1\npush constant 2\npop temp 0\n", 2, 1),
			Entry("add", "push constant 1\npush constant 2\nadd\n", 2, 1),
			Entry("sub", "push constant 1\npush constant 2\nsub\n", 2, 1),
			Entry("and", "push constant 1\npush constant 2\nand\n", 2, 1),
			Entry("or", "push constant 1\npush constant 2\nor\n", 2, 1),
			Entry("eq", "push constant 1\npush constant 2\neq\n", 2, 1),
			Entry("gt", "push constant 1\npush constant 2\ngt\n", 2, 1),
			Entry("lt", "push constant 1\npush constant 2\nlt\n", 2, 1),
			Entry("neg", "push constant 1\npush constant 2\nneg\n", 2, 2),
			Entry("not", "push constant 1\npush constant 2\nnot\n", 2, 2),
		)

		DescribeTable("results",
			func(source string, want int16) {
				Expect(run(source).Stack()).To(Equal([]int16{want}))
			},
			Entry("sub takes the top from the second", "push constant 7\npush constant 10\nsub\n", int16(-3)),
			Entry("neg", "push constant 9\nneg\n", int16(-9)),
			Entry("not", "push constant 0\nnot\n", int16(-1)),
			Entry("and", "push constant 12\npush constant 10\nand\n", int16(8)),
			Entry("or", "push constant 12\npush constant 10\nor\n", int16(14)),
			Entry("add wraps", "push constant 32767\npush constant 1\nadd\n", int16(-32768)),
		)
	})

	Context("Comparisons", func() {
		DescribeTable("truth table",
			func(x, y int, op string, want bool) {
				c := run(pushValue(x) + pushValue(y) + op + "\n")
				expected := int16(0)
				if want {
					expected = -1
				}
				Expect(c.Stack()).To(Equal([]int16{expected}))
			},
			Entry("5 eq 5", 5, 5, "eq", true),
			Entry("5 eq 4", 5, 4, "eq", false),
			Entry("5 gt 4", 5, 4, "gt", true),
			Entry("5 lt 4", 5, 4, "lt", false),
			Entry("4 gt 5", 4, 5, "gt", false),
			Entry("4 lt 5", 4, 5, "lt", true),
			Entry("5 gt 5", 5, 5, "gt", false),
			Entry("5 lt 5", 5, 5, "lt", false),
			Entry("-5 eq -5", -5, -5, "eq", true),
			Entry("-4 gt -5", -4, -5, "gt", true),
			Entry("-4 lt -5", -4, -5, "lt", false),
			Entry("-5 gt -4", -5, -4, "gt", false),
			Entry("-5 lt -4", -5, -4, "lt", true),
			Entry("5 gt -4", 5, -4, "gt", true),
			Entry("5 lt -4", 5, -4, "lt", false),
			Entry("-4 gt 5", -4, 5, "gt", false),
			Entry("-4 lt 5", -4, 5, "lt", true),
			Entry("5 eq -5", 5, -5, "eq", false),
			Entry("16000 gt -16000", 16000, -16000, "gt", true),
			Entry("-16000 lt 16000", -16000, 16000, "lt", true),
		)

		It("should run 100 comparisons without label collisions", func() {
			var b strings.Builder
			for i := 0; i < 100; i++ {
				b.WriteString(pushValue(i % 3))
				b.WriteString(pushValue(1))
				b.WriteString("eq\n")
			}
			c := run(b.String())
			words := c.Stack()
			Expect(words).To(HaveLen(100))
			for i, w := range words {
				if i%3 == 1 {
					Expect(w).To(Equal(int16(-1)))
				} else {
					Expect(w).To(Equal(int16(0)))
				}
			}
		})
	})

	Context("Segments", func() {
		DescribeTable("push constant K, pop, push back",
			func(segment string, index int) {
				source := fmt.Sprintf("push constant 1234\npop %s %d\npush %s %d\n", segment, index, segment, index)
				Expect(run(source).Stack()).To(Equal([]int16{1234}))
			},
			Entry("local", "local", 3),
			Entry("argument", "argument", 2),
			Entry("this", "this", 0),
			Entry("that", "that", 5),
			Entry("temp", "temp", 7),
			Entry("pointer 0", "pointer", 0),
			Entry("pointer 1", "pointer", 1),
			Entry("static", "static", 4),
		)

		It("should address this and that through pointer", func() {
			c := run("push constant 4000\npop pointer 1\npush constant 17\npop that 2\n")
			Expect(c.RAM[hackcpu.THAT]).To(Equal(int16(4000)))
			Expect(c.RAM[4002]).To(Equal(int16(17)))
		})

		It("should keep static variables of different units apart", func() {
			a := parse("A", "push constant 5\npop static 0\n")
			b := parse("B", "push constant 6\npop static 0\npush static 0\n")
			c := execute(vm.Program(append(a, b...)),
				hackcpu.Preset(hackcpu.SP, vm.StackBase))
			Expect(c.Stack()).To(Equal([]int16{6}))
			Expect(c.RAM[16]).To(Equal(int16(5)))
			Expect(c.RAM[17]).To(Equal(int16(6)))
		})
	})

	Context("Program flow", func() {
		It("should loop with if-goto and consume the condition", func() {
			c := run(`
push constant 0
pop local 0
push constant 5
pop local 1
label loop
push local 0
push local 1
add
pop local 0
push local 1
push constant 1
sub
pop local 1
push local 1
if-goto loop
push local 0
`)
			Expect(c.Stack()).To(Equal([]int16{15}))
		})

		It("should not confuse labels of the same name in different functions", func() {
			c := run(`
call f 0
call g 0
label end
goto end
function f 0
goto skip
push constant 666
return
label skip
push constant 10
return
function g 0
goto skip
push constant 777
return
label skip
push constant 20
return
`)
			Expect(c.Halted()).To(BeTrue())
			Expect(c.Stack()).To(Equal([]int16{10, 20}))
		})
	})

	Context("Calling convention", func() {
		DescribeTable("call and return",
			func(args, locals int) {
				var b strings.Builder
				b.WriteString("push constant 99\n")
				for i := 0; i < args; i++ {
					b.WriteString(pushValue(i + 1))
				}
				fmt.Fprintf(&b, "call Main.f %d\nlabel end\ngoto end\n", args)
				fmt.Fprintf(&b, "function Main.f %d\npush constant 77\nreturn\n", locals)

				c := run(b.String())
				Expect(c.Halted()).To(BeTrue())
				Expect(c.Stack()).To(Equal([]int16{99, 77}))
				expectSegmentsRestored(c)
			},
			Entry("no arguments, no locals", 0, 0),
			Entry("two arguments, three locals", 2, 3),
			Entry("five arguments, one local", 5, 1),
			Entry("one argument, ten locals", 1, 10),
		)

		It("should tear down the frame of function mult 3 followed by return", func() {
			c := run(`
push constant 8
call mult 1
label end
goto end
function mult 3
return
`)
			Expect(c.Halted()).To(BeTrue())
			// The top at return time is the last zeroed local.
			Expect(c.Stack()).To(Equal([]int16{0}))
			Expect(c.RAM[hackcpu.SP]).To(Equal(int16(vm.StackBase + 1)))
			expectSegmentsRestored(c)
		})

		It("should let the callee address its arguments and locals", func() {
			c := run(`
push constant 30
push constant 12
call Main.diff 2
label end
goto end
function Main.diff 1
push argument 0
push argument 1
sub
pop local 0
push local 0
return
`)
			Expect(c.Stack()).To(Equal([]int16{18}))
			expectSegmentsRestored(c)
		})
	})

	Context("Bootstrap", func() {
		It("should enter the entry function with a fresh frame and halt after it returns", func() {
			cmds := parse("Sys", `
function Sys.init 0
push pointer 0
pop temp 0
push argument 0
pop temp 1
push constant 42
return
`)
			asm, err := vm.Translate(vm.DefaultEntry, cmds)
			Expect(err).NotTo(HaveOccurred())
			rom, err := hackasm.Assemble(strings.NewReader(asm))
			Expect(err).NotTo(HaveOccurred())
			c, err := hackcpu.New(rom)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Run()).To(Succeed())

			Expect(c.Halted()).To(BeTrue())
			Expect(c.RAM[hackcpu.SP]).To(Equal(int16(vm.StackBase + 1)))
			Expect(c.RAM[vm.StackBase]).To(Equal(int16(42)))
			// The saved return address sits in argument 0's slot for a
			// zero-argument call.
			Expect(c.RAM[6]).NotTo(BeZero())
		})

		It("should run a recursive program across several units", func() {
			sys := parse("Sys", `
function Sys.init 0
push constant 10
call Main.fib 1
call Counter.bump 0
pop temp 0
call Counter.bump 0
add
return
`)
			main := parse("Main", `
function Main.fib 0
push argument 0
push constant 2
lt
if-goto base
push argument 0
push constant 1
sub
call Main.fib 1
push argument 0
push constant 2
sub
call Main.fib 1
add
return
label base
push argument 0
return
`)
			counter := parse("Counter", `
function Counter.bump 0
push static 0
push constant 1
add
pop static 0
push static 0
return
`)
			program := vm.Program(append(append(sys, main...), counter...)).WithBootstrap(vm.DefaultEntry)
			c := execute(program)
			Expect(c.Halted()).To(BeTrue())
			Expect(c.Stack()).To(Equal([]int16{55 + 2}))
		})
	})
})
