package generator

import (
	"fmt"
	"strings"

	"github.com/btouchard/lemon/internal/compiler/registry"
	"github.com/btouchard/lemon/internal/compiler/utils"
)

// OutputVar is the local variable the render function accumulates into.
const OutputVar = "lemon_code"

// Param is one parameter of a render function.
type Param struct {
	Name string
	Type *registry.Type
}

// Interface is the declared signature of a render function. The return type
// is always std::string.
type Interface struct {
	Name   string
	Params []Param
}

// Signature renders the C++ function head. Arithmetic parameters are passed
// by value, everything else by const reference.
func (it Interface) Signature() string {
	params := make([]string, len(it.Params))
	for i, p := range it.Params {
		if p.Type.Kind.IsNumeric() {
			params[i] = p.Type.String() + " " + p.Name
		} else {
			params[i] = "const " + p.Type.String() + " &" + p.Name
		}
	}
	return "std::string " + it.Name + "(" + strings.Join(params, ", ") + ")"
}

// Unit is everything needed to write one generated source file.
type Unit struct {
	Source    string   // template path, for the banner
	Includes  []string // declaration headers, as they must be spelled in #include
	Interface Interface
	Body      string // output of Generator.Body
}

type Generator struct {
	rt   Runtime
	buf  Buffer
	iter int
}

func New(rt Runtime) *Generator {
	g := &Generator{rt: rt}
	g.buf.indent = 1
	return g
}

func (g *Generator) Runtime() Runtime { return g.rt }

// Literal queues template text for verbatim output.
func (g *Generator) Literal(text string) {
	g.buf.Literal(text)
}

// DiscardBlank reports whether nothing but whitespace has been generated,
// dropping that whitespace.
func (g *Generator) DiscardBlank() bool {
	return g.buf.DiscardBlank()
}

// Append emits `lemon_code += expr;`.
func (g *Generator) Append(expr string) {
	g.buf.Statement(OutputVar + " += " + expr + ";")
}

// Statement emits one line of code at the current indentation.
func (g *Generator) Statement(format string, args ...any) {
	g.buf.Statement(fmt.Sprintf(format, args...))
}

// Open emits head followed by an opening brace and indents.
func (g *Generator) Open(head string) {
	g.buf.Statement(head)
	g.buf.Statement("{")
	g.buf.indent++
}

// Close dedents and emits a closing brace.
func (g *Generator) Close() {
	g.buf.FlushLiteral()
	g.buf.indent--
	g.buf.Statement("}")
}

// Level is the current indentation depth.
func (g *Generator) Level() int { return g.buf.indent }

func (g *Generator) State() State { return g.buf.State() }

// NextIterator returns a fresh iterator name for this render function.
func (g *Generator) NextIterator() string {
	g.iter++
	return utils.IteratorName(g.iter)
}

// Body flushes pending literal text and returns the generated statements.
func (g *Generator) Body() string {
	g.buf.FlushLiteral()
	return g.buf.String()
}

// Render assembles a complete generated source file.
func Render(rt Runtime, u Unit) string {
	var b strings.Builder

	fmt.Fprintf(&b, "// Generated by lemon from %s. DO NOT EDIT.\n\n", u.Source)
	fmt.Fprintf(&b, "#include %s\n", utils.Quote(rt.Header))
	for _, inc := range u.Includes {
		fmt.Fprintf(&b, "#include %s\n", utils.Quote(inc))
	}
	b.WriteString("\n")

	b.WriteString(u.Interface.Signature() + "\n{\n")
	b.WriteString(indentUnit + "std::string " + OutputVar + ";\n")
	b.WriteString(u.Body)
	b.WriteString(indentUnit + "return " + OutputVar + ";\n}\n")
	return b.String()
}

// IsReserved reports names that template variables must not take because
// generated code declares them.
func IsReserved(name string) bool {
	return name == OutputVar || utils.IsIteratorName(name)
}
