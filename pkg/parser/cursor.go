package parser

import (
	"strings"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/token"
)

// cursor walks a flat token stream for the recursive-descent parsers below.
type cursor struct {
	toks []token.Token
	pos  int
}

func newCursor(toks []token.Token) *cursor {
	return &cursor{toks: toks}
}

func (c *cursor) peek() (token.Token, bool) {
	if c.pos >= len(c.toks) {
		return token.Token{}, false
	}
	return c.toks[c.pos], true
}

func (c *cursor) next() (token.Token, bool) {
	t, ok := c.peek()
	if ok {
		c.pos++
	}
	return t, ok
}

func (c *cursor) done() bool { return c.pos >= len(c.toks) }

// finish fails if any tokens remain unconsumed, catching trailing garbage
// after a statement that otherwise parsed cleanly.
func (c *cursor) finish() error {
	if !c.done() {
		t, _ := c.peek()
		return errs.Syntax("unexpected trailing token %q", t.Text)
	}
	return nil
}

func (c *cursor) expectKind(kind token.Kind, what string) (token.Token, error) {
	t, ok := c.next()
	if !ok {
		return token.Token{}, errs.Syntax("expected %s, found end of query", what)
	}
	if t.Kind != kind {
		return token.Token{}, errs.Syntax("expected %s, found %q", what, t.Text)
	}
	return t, nil
}

func (c *cursor) acceptKind(kind token.Kind) (token.Token, bool) {
	t, ok := c.peek()
	if !ok || t.Kind != kind {
		return token.Token{}, false
	}
	c.pos++
	return t, true
}

// expectReserved consumes the next token, failing unless it is the given
// keyword (case-insensitive).
func (c *cursor) expectReserved(word string) error {
	t, ok := c.next()
	if !ok {
		return errs.Syntax("expected %s, found end of query", word)
	}
	if t.Kind != token.Reserved || !strings.EqualFold(t.Text, word) {
		return errs.Syntax("expected %s, found %q", word, t.Text)
	}
	return nil
}

// acceptReserved consumes the next token if it is the given keyword,
// reporting whether it matched.
func (c *cursor) acceptReserved(word string) bool {
	t, ok := c.peek()
	if !ok || t.Kind != token.Reserved || !strings.EqualFold(t.Text, word) {
		return false
	}
	c.pos++
	return true
}

// expectOperator consumes the next token, failing unless it is the exact
// operator spelling (e.g. "=").
func (c *cursor) expectOperator(op string) (token.Token, error) {
	t, ok := c.next()
	if !ok {
		return token.Token{}, errs.Syntax("expected %q, found end of query", op)
	}
	if t.Kind != token.Operator || t.Text != op {
		return token.Token{}, errs.Syntax("expected %q, found %q", op, t.Text)
	}
	return t, nil
}

// expectText consumes the next token, failing unless its raw text matches,
// regardless of classified kind. Used for punctuation the lexer didn't
// assign a dedicated kind to, such as the ':' inside a replication map.
func (c *cursor) expectText(text string) error {
	t, ok := c.next()
	if !ok {
		return errs.Syntax("expected %q, found end of query", text)
	}
	if t.Text != text {
		return errs.Syntax("expected %q, found %q", text, t.Text)
	}
	return nil
}

// expectIdentifier consumes a plain identifier: a column, table, or
// keyspace name that isn't a reserved keyword.
func (c *cursor) expectIdentifier(what string) (string, error) {
	t, err := c.expectKind(token.Identifier, what)
	if err != nil {
		return "", err
	}
	return t.Text, nil
}

// expectTableName parses a table reference, optionally qualified as
// "keyspace.table" (spec 4.2's `[ks.]name`); ks is "" when the reference
// is bare, leaving the caller to fall back to the session's keyspace.
func (c *cursor) expectTableName(what string) (ks, table string, err error) {
	name, err := c.expectIdentifier(what)
	if err != nil {
		return "", "", err
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:], nil
	}
	return "", name, nil
}
