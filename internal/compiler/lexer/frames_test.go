package lexer

import (
	"testing"

	"github.com/btouchard/lemon/internal/compiler/token"
)

func TestFrameStack(t *testing.T) {
	outer := writeFile(t, "outer.html", "a {% include %} b\n")
	inner := writeFile(t, "inner.html", "x\n")

	l := New()
	defer l.Close()
	if err := l.PushFile(outer); err != nil {
		t.Fatal(err)
	}
	if tok := l.NextSignificant(); tok.Literal != "a" {
		t.Fatalf("expected a, got %q", tok.Literal)
	}

	if err := l.PushFile(inner); err != nil {
		t.Fatal(err)
	}
	if l.Depth() != 2 || l.Path() != inner {
		t.Fatalf("depth=%d path=%s", l.Depth(), l.Path())
	}
	if tok := l.NextSignificant(); tok.Literal != "x" {
		t.Fatalf("expected x, got %q", tok.Literal)
	}
	if tok := l.NextSignificant(); tok.Type != token.EOF {
		t.Fatalf("expected EOF in inner frame, got %s", tok.Type)
	}
	if err := l.Pop(); err != nil {
		t.Fatal(err)
	}

	if tok := l.NextSignificant(); tok.Type != token.TAG_OPEN {
		t.Fatalf("outer frame should resume at {%%, got %s", tok.Type)
	}
}

func TestPushFileMissing(t *testing.T) {
	l := New()
	if err := l.PushFile("/does/not/exist.html"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if l.Depth() != 0 {
		t.Fatalf("failed push must not leave a frame, depth=%d", l.Depth())
	}
}

func TestSnapshotRestore(t *testing.T) {
	path := writeFile(t, "child.html", "head {% block body %}X\nY{% endblock %}\ntail\n")

	l := New()
	defer l.Close()
	if err := l.PushFile(path); err != nil {
		t.Fatal(err)
	}

	// consume up to and including the %} of the block tag
	for {
		tok := l.NextToken("")
		if tok.Type == token.TAG_CLOSE {
			break
		}
		if tok.Type == token.EOF {
			t.Fatal("unexpected EOF")
		}
	}
	snap := l.Snapshot()

	// drain the original frame completely
	for l.NextToken("").Type != token.EOF {
	}

	if err := l.PushSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	out := ""
	for {
		tok := l.NextToken("")
		if tok.Type == token.TAG_OPEN {
			break
		}
		out += tok.Literal
	}
	if out != "X\nY" {
		t.Fatalf("restored frame produced %q, want %q", out, "X\nY")
	}
	if l.LineNo() != 2 {
		t.Fatalf("restored line number = %d, want 2", l.LineNo())
	}
	if err := l.Pop(); err != nil {
		t.Fatal(err)
	}
	if l.Depth() != 1 {
		t.Fatalf("depth after pop = %d", l.Depth())
	}
}

func TestCloseReleasesAllFrames(t *testing.T) {
	a := writeFile(t, "a.html", "a")
	b := writeFile(t, "b.html", "b")

	l := New()
	if err := l.PushFile(a); err != nil {
		t.Fatal(err)
	}
	if err := l.PushFile(b); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if l.Depth() != 0 {
		t.Fatalf("depth after Close = %d", l.Depth())
	}
}
