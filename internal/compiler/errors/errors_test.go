package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestPositionString(t *testing.T) {
	tests := []struct {
		name     string
		pos      Position
		expected string
	}{
		{
			"with file",
			Position{File: "index.html", Line: 10, Column: 5},
			"index.html:10:5",
		},
		{
			"without file",
			Position{Line: 10, Column: 5},
			"10:5",
		},
		{
			"line 1 column 1",
			Position{Line: 1, Column: 1},
			"1:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.pos.String()
			if result != tt.expected {
				t.Errorf("Position.String() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCompileErrorError(t *testing.T) {
	err := New(Structural, Position{File: "index.html", Line: 10, Column: 5}, "{% endfor %}\r\n", "endfor does not close %s", "if")

	result := err.Error()
	expected := "[structural] index.html:10:5: endfor does not close if\n>>>> {% endfor %}"

	if result != expected {
		t.Errorf("CompileError.Error() = %q, want %q", result, expected)
	}
}

func TestCompileErrorWithoutLine(t *testing.T) {
	err := New(Resolution, Position{Line: 3, Column: 1}, "", "unknown variable %q", "user")
	if strings.Contains(err.Error(), ">>>>") {
		t.Errorf("no line marker expected, got %q", err.Error())
	}
}

func TestWrapUnwrap(t *testing.T) {
	err := Wrap(fs.ErrNotExist, IO, Position{File: "a.html", Line: 2}, "", "cannot open base.html")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected wrapped error to match fs.ErrNotExist")
	}
	if !strings.Contains(err.Error(), "cannot open base.html: file does not exist") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIsCategory(t *testing.T) {
	err := New(Lexical, Position{Line: 1}, "", "unterminated comment")
	if !IsCategory(err, Lexical) {
		t.Error("expected Lexical category")
	}
	if IsCategory(err, IO) {
		t.Error("did not expect IO category")
	}

	wrapped := fmt.Errorf("compiling: %w", err)
	if !IsCategory(wrapped, Lexical) {
		t.Error("expected category through fmt wrapping")
	}
	if IsCategory(errors.New("plain"), Lexical) {
		t.Error("plain errors have no category")
	}
}

func TestErrorListNew(t *testing.T) {
	el := NewErrorList()
	if el == nil {
		t.Fatal("NewErrorList() returned nil")
	}
	if len(el.Errors) != 0 {
		t.Errorf("NewErrorList() Errors length = %d, want 0", len(el.Errors))
	}
	if el.Err() != nil {
		t.Error("empty list must convert to a nil error")
	}
}

func TestErrorListAdd(t *testing.T) {
	el := NewErrorList()
	el.Add(nil)
	if el.HasErrors() {
		t.Fatal("Add(nil) must be ignored")
	}

	el.Add(New(IO, Position{File: "a.html", Line: 1, Column: 1}, "", "cannot open"))
	el.Add(New(Structural, Position{File: "b.html", Line: 3, Column: 10}, "", "missing endif"))

	if len(el.Errors) != 2 {
		t.Fatalf("After Add(), len(Errors) = %d, want 2", len(el.Errors))
	}

	result := el.String()
	if !strings.Contains(result, "[io] a.html:1:1: cannot open") {
		t.Errorf("String() missing first error, got: %s", result)
	}
	if !strings.Contains(result, "[structural] b.html:3:10: missing endif") {
		t.Errorf("String() missing second error, got: %s", result)
	}
	if err := el.Err(); err == nil || !strings.HasPrefix(err.Error(), "2 template(s) failed") {
		t.Errorf("Err() = %v", err)
	}
}
