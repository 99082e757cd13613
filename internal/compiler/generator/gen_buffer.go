package generator

import (
	"strings"

	"github.com/btouchard/lemon/internal/compiler/utils"
)

const indentUnit = "    "

// State tells whether the buffer is accumulating literal text or sits
// between statements.
type State int

const (
	InStatement State = iota
	InLiteral
)

func (s State) String() string {
	if s == InLiteral {
		return "InLiteral"
	}
	return "InStatement"
}

// Buffer collects generated statements. Consecutive literal text is
// coalesced into a single append statement, flushed only when a statement is
// emitted or the body is taken.
type Buffer struct {
	out    strings.Builder
	lit    strings.Builder
	state  State
	indent int
}

func (b *Buffer) State() State { return b.state }

func (b *Buffer) Literal(text string) {
	if text == "" {
		return
	}
	b.lit.WriteString(text)
	b.state = InLiteral
}

// FlushLiteral turns pending literal text into one append statement.
func (b *Buffer) FlushLiteral() {
	if b.state != InLiteral {
		return
	}
	b.state = InStatement
	text := b.lit.String()
	b.lit.Reset()
	b.line(OutputVar + " += " + utils.RawLiteral(text) + ";")
}

// DiscardBlank drops pending literal text if it is only whitespace and
// nothing else has been emitted. It reports whether the buffer is now empty.
func (b *Buffer) DiscardBlank() bool {
	if b.out.Len() > 0 || strings.TrimSpace(b.lit.String()) != "" {
		return false
	}
	b.lit.Reset()
	b.state = InStatement
	return true
}

func (b *Buffer) Statement(code string) {
	b.FlushLiteral()
	b.line(code)
}

func (b *Buffer) line(code string) {
	b.out.WriteString(strings.Repeat(indentUnit, b.indent))
	b.out.WriteString(code)
	b.out.WriteByte('\n')
}

func (b *Buffer) String() string {
	return b.out.String()
}
