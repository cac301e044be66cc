// Package query defines the parsed representation of every statement the
// language accepts, the WHERE/IF boolean-expression evaluator, and the
// msgpack envelope used to ship a parsed query across the node-to-node
// delegation wire.
package query

import (
	"github.com/ringkeep/ringnode/pkg/errs"
	"github.com/ringkeep/ringnode/pkg/model"
)

// Comparison is a single "column OP literal" predicate.
type Comparison struct {
	Column string        `msgpack:"column"`
	Op     string        `msgpack:"op"` // "=", "<", ">", "_GE_", "_LE_", "_DF_"
	Value  model.Literal `msgpack:"value"`
}

// BooleanExpr is the parsed shape of a WHERE or IF clause: a tree of
// comparisons combined with AND/OR/NOT, parenthesized as a Tuple, or the
// standalone IF EXISTS marker (spec 4.2's "If clause adds Exists").
type BooleanExpr struct {
	Comparison *Comparison    `msgpack:"comparison,omitempty"`
	And        []BooleanExpr `msgpack:"and,omitempty"`
	Or         []BooleanExpr `msgpack:"or,omitempty"`
	Not        *BooleanExpr  `msgpack:"not,omitempty"`
	Tuple      *BooleanExpr  `msgpack:"tuple,omitempty"`
	Exists     bool          `msgpack:"exists,omitempty"`
}

// Evaluate resolves the expression against a row's column values, as
// rendered by model.Row.AsMap (a tombstone row always evaluates false). An
// empty map represents "no row found for this key" (spec 4.2: "IF clause
// is evaluated against the existing row, empty if absent"); IF EXISTS is
// satisfied only when the map carries at least one column.
func (e BooleanExpr) Evaluate(row map[string]model.Literal) (bool, error) {
	switch {
	case e.Exists:
		return len(row) > 0, nil
	case e.Comparison != nil:
		return e.Comparison.evaluate(row)
	case len(e.And) > 0:
		for _, sub := range e.And {
			ok, err := sub.Evaluate(row)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case len(e.Or) > 0:
		for _, sub := range e.Or {
			ok, err := sub.Evaluate(row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case e.Not != nil:
		ok, err := e.Not.Evaluate(row)
		return !ok, err
	case e.Tuple != nil:
		return e.Tuple.Evaluate(row)
	default:
		return true, nil
	}
}

func (c Comparison) evaluate(row map[string]model.Literal) (bool, error) {
	actual, ok := row[c.Column]
	if !ok {
		return false, nil
	}
	cmp, err := actual.Compare(c.Value)
	if err != nil {
		return false, errs.Invalid("comparing column %q: %v", c.Column, err)
	}
	switch c.Op {
	case "=":
		return cmp == 0, nil
	case "_DF_":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case ">":
		return cmp > 0, nil
	case "_LE_":
		return cmp <= 0, nil
	case "_GE_":
		return cmp >= 0, nil
	default:
		return false, errs.Syntax("unknown comparison operator %q", c.Op)
	}
}

// EqualityValue returns the literal that a top-level AND-conjunction of
// comparisons pins column to via "=", if the expression constrains it that
// way; ok is false when column isn't pinned to a single equality (absent,
// compared with OR, negated, or only bounded by an inequality).
func (e BooleanExpr) EqualityValue(column string) (model.Literal, bool) {
	switch {
	case e.Comparison != nil:
		if e.Comparison.Column == column && e.Comparison.Op == "=" {
			return e.Comparison.Value, true
		}
		return model.Literal{}, false
	case len(e.And) > 0:
		for _, sub := range e.And {
			if v, ok := sub.EqualityValue(column); ok {
				return v, true
			}
		}
		return model.Literal{}, false
	case e.Tuple != nil:
		return e.Tuple.EqualityValue(column)
	default:
		return model.Literal{}, false
	}
}

// Columns collects every column name referenced anywhere in the
// expression, used to validate a WHERE clause against partition/clustering
// key restrictions before a query is planned.
func (e BooleanExpr) Columns() []string {
	var out []string
	switch {
	case e.Comparison != nil:
		out = append(out, e.Comparison.Column)
	case len(e.And) > 0:
		for _, sub := range e.And {
			out = append(out, sub.Columns()...)
		}
	case len(e.Or) > 0:
		for _, sub := range e.Or {
			out = append(out, sub.Columns()...)
		}
	case e.Not != nil:
		out = append(out, e.Not.Columns()...)
	case e.Tuple != nil:
		out = append(out, e.Tuple.Columns()...)
	}
	return out
}
