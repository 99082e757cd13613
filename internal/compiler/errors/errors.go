package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies a compilation failure. Every category is fatal to the
// compilation unit that raised it.
type Category string

const (
	Lexical    Category = "lexical"
	Structural Category = "structural"
	Resolution Category = "resolution"
	IO         Category = "io"
)

// Position represents a location in source code
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// CompileError represents a compilation error with source position
type CompileError struct {
	Category Category
	Pos      Position
	LineText string // raw text of the offending line
	Message  string
	Err      error
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Category, e.Pos, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if line := strings.TrimRight(e.LineText, "\r\n"); line != "" {
		msg += "\n>>>> " + line
	}
	return msg
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func New(cat Category, pos Position, lineText, format string, args ...any) *CompileError {
	return &CompileError{
		Category: cat,
		Pos:      pos,
		LineText: lineText,
		Message:  fmt.Sprintf(format, args...),
	}
}

func Wrap(err error, cat Category, pos Position, lineText, msg string) *CompileError {
	return &CompileError{Category: cat, Pos: pos, LineText: lineText, Message: msg, Err: err}
}

// IsCategory checks if an error is a CompileError of the given category.
func IsCategory(err error, cat Category) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Category == cat
	}
	return false
}

// ErrorList collects the failures of a batch of compilation units
type ErrorList struct {
	Errors []error
}

func NewErrorList() *ErrorList {
	return &ErrorList{}
}

func (el *ErrorList) Add(err error) {
	if err != nil {
		el.Errors = append(el.Errors, err)
	}
}

func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

func (el *ErrorList) String() string {
	s := ""
	for _, e := range el.Errors {
		s += e.Error() + "\n"
	}
	return s
}

// Err returns nil for an empty list so callers can return it directly.
func (el *ErrorList) Err() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

func (el *ErrorList) Error() string {
	return fmt.Sprintf("%d template(s) failed:\n%s", len(el.Errors), el.String())
}
