package lexer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/compiler/token"
)

// delimiters end an identifier run; each one is also a token on its own.
const delimiters = " <>{}()[]%&!?:|,\\/.\r\t\n\"'`=-;*#~"

// SkipTrivia is the skip set used by the header reader.
const SkipTrivia = " \t\r\n"

// Frame is the lexing state of one open input file. The frame exclusively
// owns its file handle.
type Frame struct {
	path    string
	file    *os.File
	r       *bufio.Reader
	offset  int64  // bytes read from the file so far
	buf     string // unread remainder of the current line
	line    string // full current line, for diagnostics
	lineNo  int
	eof     bool
	last    token.Token
	pending []token.Token
}

func (f *Frame) Path() string { return f.path }

// Snapshot is the saved position of a frame. Restoring it opens a fresh
// frame on the same file positioned exactly where the snapshot was taken.
type Snapshot struct {
	Path   string
	Offset int64
	Buffer string
	Line   string
	LineNo int
}

type Lexer struct {
	frames []*Frame
}

func New() *Lexer {
	return &Lexer{}
}

// PushFile opens path and makes it the active frame.
func (l *Lexer) PushFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	l.frames = append(l.frames, &Frame{path: path, file: f, r: bufio.NewReader(f)})
	return nil
}

// PushSnapshot re-opens the snapshot's file at its saved offset and restores
// the buffered line state on a new active frame.
func (l *Lexer) PushSnapshot(s Snapshot) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	if _, err := f.Seek(s.Offset, io.SeekStart); err != nil {
		_ = f.Close()
		return fmt.Errorf("seek %s: %w", s.Path, err)
	}
	l.frames = append(l.frames, &Frame{
		path:   s.Path,
		file:   f,
		r:      bufio.NewReader(f),
		offset: s.Offset,
		buf:    s.Buffer,
		line:   s.Line,
		lineNo: s.LineNo,
	})
	return nil
}

// Snapshot captures the active frame. Pushed-back tokens are not part of a
// snapshot, so callers take it right after consuming a delimiter.
func (l *Lexer) Snapshot() Snapshot {
	f := l.top()
	return Snapshot{Path: f.path, Offset: f.offset, Buffer: f.buf, Line: f.line, LineNo: f.lineNo}
}

// Pop closes the active frame.
func (l *Lexer) Pop() error {
	if len(l.frames) == 0 {
		return nil
	}
	f := l.frames[len(l.frames)-1]
	l.frames = l.frames[:len(l.frames)-1]
	return f.file.Close()
}

// Close closes every open frame.
func (l *Lexer) Close() error {
	var first error
	for len(l.frames) > 0 {
		if err := l.Pop(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (l *Lexer) Depth() int {
	return len(l.frames)
}

func (l *Lexer) top() *Frame {
	if len(l.frames) == 0 {
		panic("lexer: no open frame")
	}
	return l.frames[len(l.frames)-1]
}

func (l *Lexer) Path() string     { return l.top().path }
func (l *Lexer) LineNo() int      { return l.top().lineNo }
func (l *Lexer) LineText() string { return l.top().line }

// Last returns the most recently produced token of the active frame.
func (l *Lexer) Last() token.Token { return l.top().last }

// Unread pushes tokens back; they are returned in the order given, ahead of
// any tokens pushed back earlier and of new input.
func (l *Lexer) Unread(toks ...token.Token) {
	f := l.top()
	f.pending = append(append([]token.Token(nil), toks...), f.pending...)
}

// readLine refills the line buffer. At end of input the buffer stays empty.
func (f *Frame) readLine() {
	if f.eof {
		return
	}
	line, err := f.r.ReadString('\n')
	if len(line) > 0 {
		f.offset += int64(len(line))
		f.buf = line
		f.line = line
		f.lineNo++
	}
	if err != nil {
		f.eof = true
	}
}

func (f *Frame) skip(chars string) {
	for {
		f.buf = strings.TrimLeft(f.buf, chars)
		if f.buf != "" || f.eof || !strings.Contains(chars, "\n") {
			return
		}
		f.readLine()
	}
}

// NextToken returns the next token, first discarding any of the characters in
// skip. Trivia tokens are produced for whitespace that is not skipped.
func (l *Lexer) NextToken(skip string) token.Token {
	f := l.top()
	for len(f.pending) > 0 {
		tok := f.pending[0]
		f.pending = f.pending[1:]
		if tok.Type.IsTrivia() && skip != "" && strings.Contains(skip, tok.Literal) {
			continue
		}
		f.last = tok
		return tok
	}
	if skip != "" {
		f.skip(skip)
	}
	if f.buf == "" {
		f.readLine()
		if skip != "" {
			f.skip(skip)
		}
	}
	tok := f.scan()
	f.last = tok
	return tok
}

// NextSignificant skips whitespace and newlines.
func (l *Lexer) NextSignificant() token.Token {
	return l.NextToken(SkipTrivia)
}

func (f *Frame) scan() token.Token {
	pos := token.Position{Line: f.lineNo, Column: len(f.line) - len(f.buf) + 1}
	if f.buf == "" {
		return token.Token{Type: token.EOF, Pos: pos}
	}

	i := strings.IndexAny(f.buf, delimiters)
	if i != 0 {
		if i < 0 {
			i = len(f.buf)
		}
		word := f.buf[:i]
		f.buf = f.buf[i:]
		if word == "std" {
			if tok, ok := f.qualifiedContainer(pos); ok {
				return tok
			}
		}
		return token.Token{Type: token.LookupIdent(word), Literal: word, Pos: pos}
	}

	typ, lit := f.operator()
	f.buf = f.buf[len(lit):]
	return token.Token{Type: typ, Literal: lit, Pos: pos}
}

// qualifiedContainer fuses "std::name" into one container token when the
// source spells it without interior spaces.
func (f *Frame) qualifiedContainer(pos token.Position) (token.Token, bool) {
	if !strings.HasPrefix(f.buf, "::") {
		return token.Token{}, false
	}
	rest := f.buf[2:]
	end := strings.IndexAny(rest, delimiters)
	if end < 0 {
		end = len(rest)
	}
	typ, ok := token.LookupContainer(rest[:end])
	if !ok {
		return token.Token{}, false
	}
	f.buf = rest[end:]
	return token.Token{Type: typ, Literal: "std::" + rest[:end], Pos: pos}, true
}

var twoChar = map[string]token.TokenType{
	"<=": token.LT_EQ,
	">=": token.GT_EQ,
	"==": token.EQ,
	"!=": token.NOT_EQ,
	"::": token.DOUBLECOLON,
	"{{": token.VAR_OPEN,
	"}}": token.VAR_CLOSE,
	"{%": token.TAG_OPEN,
	"%}": token.TAG_CLOSE,
	"//": token.LINE_COMMENT,
	"/*": token.BLOCK_OPEN,
	"*/": token.BLOCK_CLOSE,
}

var oneChar = map[byte]token.TokenType{
	' ':  token.SPACE,
	'\t': token.TAB,
	'\r': token.CR,
	'\n': token.NEWLINE,
	'<':  token.LT,
	'>':  token.GT,
	'=':  token.ASSIGN,
	'!':  token.BANG,
	':':  token.COLON,
	';':  token.SEMICOLON,
	',':  token.COMMA,
	'.':  token.DOT,
	'|':  token.PIPE,
	'&':  token.AMPERSAND,
	'*':  token.ASTERISK,
	'-':  token.MINUS,
	'/':  token.SLASH,
	'\\': token.BACKSLASH,
	'%':  token.PERCENT,
	'#':  token.HASH,
	'~':  token.TILDE,
	'?':  token.QUESTION,
	'"':  token.DQUOTE,
	'\'': token.SQUOTE,
	'`':  token.BACKTICK,
	'(':  token.LPAREN,
	')':  token.RPAREN,
	'{':  token.LBRACE,
	'}':  token.RBRACE,
	'[':  token.LBRACKET,
	']':  token.RBRACKET,
}

// operator recognises the delimiter at the start of the buffer, fusing the
// multi-character forms by lookahead.
func (f *Frame) operator() (token.TokenType, string) {
	switch {
	case strings.HasPrefix(f.buf, "<!--"):
		return token.COMMENT_OPEN, "<!--"
	case strings.HasPrefix(f.buf, "-->"):
		return token.COMMENT_CLOSE, "-->"
	}
	if len(f.buf) >= 2 {
		if typ, ok := twoChar[f.buf[:2]]; ok {
			return typ, f.buf[:2]
		}
	}
	if typ, ok := oneChar[f.buf[0]]; ok {
		return typ, f.buf[:1]
	}
	return token.ILLEGAL, f.buf[:1]
}

// ReadQuoted consumes raw text up to the closing quote on the current line.
// The opening quote must already have been consumed. Backslash escapes are
// kept verbatim in the result.
func (l *Lexer) ReadQuoted(quote byte) (string, bool) {
	f := l.top()
	for i := 0; i < len(f.buf); i++ {
		switch f.buf[i] {
		case '\\':
			i++
		case '\n':
			return "", false
		case quote:
			s := f.buf[:i]
			f.buf = f.buf[i+1:]
			return s, true
		}
	}
	return "", false
}

// SkipBlockComment consumes a C-style comment whose opening "/*" has already
// been read. Nested comments are balanced. It reports false when input ends
// before the comment is closed.
func (l *Lexer) SkipBlockComment() bool {
	f := l.top()
	depth := 1
	for {
		for i := 0; i+1 < len(f.buf); i++ {
			switch f.buf[i : i+2] {
			case "/*":
				depth++
				i++
			case "*/":
				depth--
				i++
				if depth == 0 {
					f.buf = f.buf[i+1:]
					return true
				}
			}
		}
		f.buf = ""
		f.readLine()
		if f.buf == "" {
			return false
		}
	}
}

// RestOfLine consumes and returns the unread part of the current line.
func (l *Lexer) RestOfLine() string {
	f := l.top()
	s := f.buf
	f.buf = ""
	return s
}

// Errorf builds a compile error positioned at the last token of the active
// frame, carrying that frame's current raw line.
func (l *Lexer) Errorf(cat cerr.Category, format string, args ...any) *cerr.CompileError {
	if len(l.frames) == 0 {
		return cerr.New(cat, cerr.Position{}, "", format, args...)
	}
	f := l.top()
	pos := cerr.Position{File: f.path, Line: f.last.Pos.Line, Column: f.last.Pos.Column}
	if pos.Line == 0 {
		pos.Line = f.lineNo
	}
	return cerr.New(cat, pos, f.line, format, args...)
}
