// Package vm translates stack VM commands into Hack assembly.
//
// The VM has eight memory segments, nine arithmetic and logical commands,
// labels and jumps scoped to the enclosing function, and a calling
// convention built on five saved words per frame:
//
//	argument 0..n-1     <- ARG
//	return address
//	saved LCL
//	saved ARG
//	saved THIS
//	saved THAT
//	local 0..k-1        <- LCL
//	working stack       <- SP
//
// Commands are built with the NewXxx constructors, which validate operand
// ranges and segment legality, and are rendered in order by Program.Translate.
// Internal labels are derived from a command's position in the program so
// the output is identical on every run over the same input.
package vm
