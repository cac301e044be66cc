package parser

import (
	"strings"

	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
	"github.com/ringkeep/ringnode/pkg/query"
	"github.com/ringkeep/ringnode/pkg/token"
)

// parseLiteral converts one value token into a typed Literal by its lexical
// kind. A column's declared type (date/time/duration render as quoted text
// at the lexer level) is stamped later by the executor against the table
// schema; the parser only knows the surface form.
func parseLiteral(t token.Token) (model.Literal, error) {
	switch t.Kind {
	case token.IntLiteral:
		return model.NewLiteral(t.Text, model.Int), nil
	case token.DecimalLiteral:
		return model.NewLiteral(t.Text, model.Decimal), nil
	case token.BooleanLiteral:
		return model.NewLiteral(strings.ToLower(t.Text), model.Boolean), nil
	case token.TextLiteral:
		return model.NewLiteral(token.Unquote(t.Text), model.Text), nil
	default:
		return model.Literal{}, errs.Syntax("expected a value, found %q", t.Text)
	}
}

// parseBooleanExpr parses a full WHERE/IF clause with OR binding loosest,
// then AND, then NOT, then a parenthesized or bare comparison — real
// precedence climbing rather than a flat list of comparisons.
func parseBooleanExpr(c *cursor) (query.BooleanExpr, error) {
	return parseOr(c)
}

func parseOr(c *cursor) (query.BooleanExpr, error) {
	first, err := parseAnd(c)
	if err != nil {
		return query.BooleanExpr{}, err
	}
	terms := []query.BooleanExpr{first}
	for c.acceptReserved("OR") {
		next, err := parseAnd(c)
		if err != nil {
			return query.BooleanExpr{}, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return query.BooleanExpr{Or: terms}, nil
}

func parseAnd(c *cursor) (query.BooleanExpr, error) {
	first, err := parseNot(c)
	if err != nil {
		return query.BooleanExpr{}, err
	}
	terms := []query.BooleanExpr{first}
	for c.acceptReserved("AND") {
		next, err := parseNot(c)
		if err != nil {
			return query.BooleanExpr{}, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return query.BooleanExpr{And: terms}, nil
}

func parseNot(c *cursor) (query.BooleanExpr, error) {
	if c.acceptReserved("NOT") {
		inner, err := parseNot(c)
		if err != nil {
			return query.BooleanExpr{}, err
		}
		return query.BooleanExpr{Not: &inner}, nil
	}
	return parsePrimary(c)
}

func parsePrimary(c *cursor) (query.BooleanExpr, error) {
	if _, ok := c.acceptKind(token.LParen); ok {
		inner, err := parseOr(c)
		if err != nil {
			return query.BooleanExpr{}, err
		}
		if _, err := c.expectKind(token.RParen, ")"); err != nil {
			return query.BooleanExpr{}, err
		}
		return query.BooleanExpr{Tuple: &inner}, nil
	}
	return parseComparison(c)
}

func parseComparison(c *cursor) (query.BooleanExpr, error) {
	col, err := c.expectIdentifier("column name")
	if err != nil {
		return query.BooleanExpr{}, err
	}
	opTok, ok := c.acceptKind(token.Operator)
	if !ok || (opTok.Text != "=" && opTok.Text != "<" && opTok.Text != ">" &&
		opTok.Text != token.OpGE && opTok.Text != token.OpLE && opTok.Text != token.OpNE) {
		return query.BooleanExpr{}, errs.Syntax("expected a comparison operator after %q", col)
	}
	valTok, ok := c.next()
	if !ok {
		return query.BooleanExpr{}, errs.Syntax("expected a value after %q %s", col, opTok.Text)
	}
	val, err := parseLiteral(valTok)
	if err != nil {
		return query.BooleanExpr{}, err
	}
	return query.BooleanExpr{Comparison: &query.Comparison{Column: col, Op: opTok.Text, Value: val}}, nil
}

// parseOrderBy parses "col [ASC|DESC] [, col [ASC|DESC] ...]".
func parseOrderBy(c *cursor) (query.OrderByClause, error) {
	var clause query.OrderByClause
	for {
		col, err := c.expectIdentifier("order-by column")
		if err != nil {
			return nil, err
		}
		term := query.OrderByTerm{Column: col}
		if c.acceptReserved("DESC") {
			term.Descending = true
		} else {
			c.acceptReserved("ASC")
		}
		clause = append(clause, term)
		if _, ok := c.acceptKind(token.Comma); ok {
			continue
		}
		break
	}
	return clause, nil
}
