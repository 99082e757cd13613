package parser

import (
	"path/filepath"

	cerr "github.com/btouchard/lemon/internal/compiler/errors"
	"github.com/btouchard/lemon/internal/compiler/token"
)

// readTarget reads the quoted path argument of include or extends, through
// the closing %}, and resolves it against the directory of the current file.
func (p *Parser) readTarget(kw token.Token) (string, error) {
	q := p.lx.NextSignificant()
	if q.Type != token.DQUOTE && q.Type != token.SQUOTE {
		return "", p.errorf(cerr.Structural, "%s expects a quoted path, got %q", kw.Literal, q.Literal)
	}
	target, ok := p.lx.ReadQuoted(q.Literal[0])
	if !ok {
		return "", p.errorf(cerr.Lexical, "unterminated path in %s", kw.Literal)
	}
	if err := p.expectTagClose(); err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(p.lx.Path()), target)
	}
	return filepath.Clean(target), nil
}

// open makes path the active frame.
func (p *Parser) open(kw token.Token, path string) error {
	if p.lx.Depth() >= p.opts.MaxDepth {
		return p.errorf(cerr.Structural, "templates nested deeper than %d (recursive %s?)", p.opts.MaxDepth, kw.Literal)
	}
	if err := p.lx.PushFile(path); err != nil {
		ce := p.errorf(cerr.IO, "cannot open %s target %s", kw.Literal, path)
		ce.Err = err
		return ce
	}
	p.addDep(path)
	p.log.Debug("template opened", "file", path, "by", kw.Literal, "depth", p.lx.Depth())
	return nil
}

// parseInclude renders another template in place, sharing the current scope.
// Constructs cannot span the boundary of the included file.
func (p *Parser) parseInclude(kw token.Token) error {
	target, err := p.readTarget(kw)
	if err != nil {
		return err
	}
	if err := p.open(kw, target); err != nil {
		return err
	}
	p.push(kw, "")

	end, err := p.parseBody()
	if err != nil {
		return err
	}
	if end.Type != token.EOF {
		return p.unexpected(end)
	}
	if err := p.pop(end, token.INCLUDE); err != nil {
		return err
	}
	return p.lx.Pop()
}

// parseExtends records the blocks of the rest of the current file, then
// renders the parent template in its place. Overrides already recorded by a
// more derived template take precedence.
func (p *Parser) parseExtends(kw token.Token) error {
	if len(p.status) > 0 {
		return p.errorf(cerr.Structural, "extends cannot appear inside {%% %s %%}", p.status[len(p.status)-1].tok.Literal)
	}
	if !p.gen.DiscardBlank() {
		return p.errorf(cerr.Structural, "extends must come before any output")
	}
	target, err := p.readTarget(kw)
	if err != nil {
		return err
	}
	if err := p.collectBlocks(); err != nil {
		return err
	}

	if err := p.open(kw, target); err != nil {
		return err
	}
	end, err := p.parseBody()
	if err != nil {
		return err
	}
	if end.Type != token.EOF {
		return p.unexpected(end)
	}
	return p.lx.Pop()
}

// collectBlocks scans the active frame to its end, snapshotting the content
// position of every block. Anything outside blocks is ignored.
func (p *Parser) collectBlocks() error {
	lx := p.lx
	for {
		tok := lx.NextToken("")
		switch tok.Type {
		case token.EOF:
			return nil
		case token.TAG_OPEN:
			kw := lx.NextSignificant()
			switch kw.Type {
			case token.EXTENDS:
				return p.errorf(cerr.Structural, "a template can extend only one parent")
			case token.BLOCK:
				name, err := p.blockName()
				if err != nil {
					return err
				}
				if err := p.expectTagClose(); err != nil {
					return err
				}
				if _, ok := p.blocks[name]; !ok {
					p.blocks[name] = lx.Snapshot()
					p.log.Debug("block override recorded", "block", name, "file", lx.Path(), "line", lx.LineNo())
				}
			}
		}
	}
}

func (p *Parser) blockName() (string, error) {
	tok := p.lx.NextSignificant()
	if !tok.IsWord() {
		return "", p.errorf(cerr.Structural, "expected block name, got %q", tok.Literal)
	}
	return tok.Literal, nil
}

// closeBlock reads the rest of `{% endblock [name] %}`.
func (p *Parser) closeBlock(name string) error {
	tok := p.lx.NextSignificant()
	if tok.Type == token.TAG_CLOSE {
		return nil
	}
	if !tok.IsWord() {
		return p.errorf(cerr.Structural, "expected %%}, got %q", tok.Literal)
	}
	if tok.Literal != name {
		return p.errorf(cerr.Structural, "endblock %s does not match block %s", tok.Literal, name)
	}
	return p.expectTagClose()
}

// parseBlock renders a block: the recorded override when there is one, the
// block's own content otherwise.
func (p *Parser) parseBlock(kw token.Token) error {
	name, err := p.blockName()
	if err != nil {
		return err
	}
	if err := p.expectTagClose(); err != nil {
		return err
	}
	p.push(kw, name)

	snap, ok := p.blocks[name]
	if !ok || p.rendering[name] {
		return p.finishBlock(name)
	}

	if p.lx.Depth() >= p.opts.MaxDepth {
		return p.errorf(cerr.Structural, "templates nested deeper than %d", p.opts.MaxDepth)
	}
	if err := p.lx.PushSnapshot(snap); err != nil {
		ce := p.errorf(cerr.IO, "cannot reopen %s for block %s", snap.Path, name)
		ce.Err = err
		return ce
	}
	p.log.Debug("block overridden", "block", name, "from", snap.Path)
	p.rendering[name] = true
	if err := p.finishBlock(name); err != nil {
		return err
	}
	delete(p.rendering, name)
	if err := p.lx.Pop(); err != nil {
		return err
	}
	return p.skipBlock(name)
}

// finishBlock renders up to the endblock of the innermost open block.
func (p *Parser) finishBlock(name string) error {
	end, err := p.parseBody()
	if err != nil {
		return err
	}
	if end.Type != token.ENDBLOCK {
		return p.unexpected(end)
	}
	if err := p.pop(end, token.BLOCK); err != nil {
		return err
	}
	return p.closeBlock(name)
}

// skipBlock discards the overridden content of the active frame up to the
// endblock matching an already consumed block tag.
func (p *Parser) skipBlock(name string) error {
	lx := p.lx
	depth := 1
	for {
		tok := lx.NextToken("")
		switch tok.Type {
		case token.EOF:
			return p.errorf(cerr.Structural, "unexpected end of input: block %s is not closed", name)
		case token.TAG_OPEN:
			switch kw := lx.NextSignificant(); kw.Type {
			case token.BLOCK:
				depth++
			case token.ENDBLOCK:
				depth--
				if depth == 0 {
					return p.closeBlock(name)
				}
			}
		}
	}
}
