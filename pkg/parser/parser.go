// Package parser turns query text into a query.Query via a
// recursive-descent design: dispatch on the leading keyword, then one
// function per grammar production that consumes tokens off a shared
// cursor and recurses.
package parser

import (
	"strings"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/query"
	"github.com/ringkeep/ringnode/pkg/token"
)

// Parse tokenizes and parses a single statement. A trailing semicolon is
// already stripped by the lexer's character mapping.
func Parse(text string) (query.Query, error) {
	toks := token.Tokenize(text)
	c := newCursor(toks)

	first, ok := c.next()
	if !ok {
		return query.Query{}, errs.Syntax("empty query")
	}
	if first.Kind != token.Reserved {
		return query.Query{}, errs.Syntax("expected a statement keyword, found %q", first.Text)
	}

	switch strings.ToUpper(first.Text) {
	case "SELECT":
		q, err := parseSelect(c)
		if err != nil {
			return query.Query{}, err
		}
		return query.Query{Kind: query.KindSelect, Select: q}, nil

	case "INSERT":
		q, err := parseInsert(c)
		if err != nil {
			return query.Query{}, err
		}
		return query.Query{Kind: query.KindInsert, Insert: q}, nil

	case "UPDATE":
		q, err := parseUpdate(c)
		if err != nil {
			return query.Query{}, err
		}
		return query.Query{Kind: query.KindUpdate, Update: q}, nil

	case "DELETE":
		q, err := parseDelete(c)
		if err != nil {
			return query.Query{}, err
		}
		return query.Query{Kind: query.KindDelete, Delete: q}, nil

	case "USE":
		q, err := parseUse(c)
		if err != nil {
			return query.Query{}, err
		}
		return query.Query{Kind: query.KindUse, Use: q}, nil

	case "CREATE":
		switch {
		case c.acceptReserved("TABLE"):
			q, err := parseCreateTable(c)
			if err != nil {
				return query.Query{}, err
			}
			return query.Query{Kind: query.KindCreateTable, CreateTable: q}, nil
		case c.acceptReserved("KEYSPACE"):
			q, err := parseCreateKeyspace(c)
			if err != nil {
				return query.Query{}, err
			}
			return query.Query{Kind: query.KindCreateKeyspace, CreateKeyspace: q}, nil
		default:
			t, _ := c.peek()
			return query.Query{}, errs.Syntax("expected TABLE or KEYSPACE after CREATE, found %q", t.Text)
		}

	case "DROP":
		switch {
		case c.acceptReserved("TABLE"):
			q, err := parseDropTable(c)
			if err != nil {
				return query.Query{}, err
			}
			return query.Query{Kind: query.KindDropTable, DropTable: q}, nil
		case c.acceptReserved("KEYSPACE"):
			q, err := parseDropKeyspace(c)
			if err != nil {
				return query.Query{}, err
			}
			return query.Query{Kind: query.KindDropKeyspace, DropKeyspace: q}, nil
		default:
			t, _ := c.peek()
			return query.Query{}, errs.Syntax("expected TABLE or KEYSPACE after DROP, found %q", t.Text)
		}

	case "ALTER":
		if err := c.expectReserved("TABLE"); err != nil {
			return query.Query{}, err
		}
		q, err := parseAlterTable(c)
		if err != nil {
			return query.Query{}, err
		}
		return query.Query{Kind: query.KindAlterTable, AlterTable: q}, nil

	default:
		return query.Query{}, errs.Syntax("unsupported statement %q", first.Text)
	}
}
