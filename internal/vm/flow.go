package vm

// NoFunction qualifies labels declared before the first function.
const NoFunction = "None"

// QualifiedLabel returns the assembly symbol for a label declared inside
// function. The same label text in two functions never yields the same
// symbol.
func QualifiedLabel(function, label string) string {
	if function == "" {
		function = NoFunction
	}
	return function + "$" + label
}

// Label declares a jump target local to the enclosing function.
type Label struct {
	name string
}

func NewLabel(name string) Label { return Label{name: name} }

func (l Label) Name() string   { return l.name }
func (l Label) String() string { return "label " + l.name }

func (l Label) Render(scope Scope) ([]string, error) {
	return []string{declare(QualifiedLabel(scope.Function, l.name))}, nil
}

func (Label) isCommand() {}

// Goto jumps unconditionally to a label of the enclosing function.
type Goto struct {
	name string
}

func NewGoto(name string) Goto { return Goto{name: name} }

func (g Goto) Name() string   { return g.name }
func (g Goto) String() string { return "goto " + g.name }

func (g Goto) Render(scope Scope) ([]string, error) {
	return []string{at(QualifiedLabel(scope.Function, g.name)), "0;JMP"}, nil
}

func (Goto) isCommand() {}

// IfGoto pops the top of the stack and jumps when it is not zero.
type IfGoto struct {
	name string
}

func NewIfGoto(name string) IfGoto { return IfGoto{name: name} }

func (g IfGoto) Name() string   { return g.name }
func (g IfGoto) String() string { return "if-goto " + g.name }

func (g IfGoto) Render(scope Scope) ([]string, error) {
	return seq(popD, []string{at(QualifiedLabel(scope.Function, g.name)), "D;JNE"}), nil
}

func (IfGoto) isCommand() {}
