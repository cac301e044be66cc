package model

import (
	"strconv"
	"strings"

	"github.com/ringkeep/ringnode/pkg/errs"
)

// DataType is one of the seven column types the wire protocol and storage
// engine understand.
type DataType string

const (
	Int      DataType = "int"
	Boolean  DataType = "boolean"
	Date     DataType = "date"
	Decimal  DataType = "decimal"
	Text     DataType = "text"
	Duration DataType = "duration"
	Time     DataType = "time"
)

// ParseDataType resolves a lowercase keyword to a DataType, mirroring the
// lexer's typed-identifier table.
func ParseDataType(word string) (DataType, bool) {
	switch strings.ToLower(word) {
	case string(Int):
		return Int, true
	case string(Boolean):
		return Boolean, true
	case string(Date):
		return Date, true
	case string(Decimal):
		return Decimal, true
	case string(Text):
		return Text, true
	case string(Duration):
		return Duration, true
	case string(Time):
		return Time, true
	default:
		return "", false
	}
}

// Literal is a typed scalar value as it travels through the parser, the
// where/if evaluator, and the storage engine.
type Literal struct {
	Text string   `json:"text"`
	Type DataType `json:"data_type"`
}

func NewLiteral(text string, typ DataType) Literal {
	return Literal{Text: text, Type: typ}
}

// Canonical re-parses the literal's text according to its declared type,
// producing a value comparable independent of surface formatting (e.g.
// "3" vs "03" for Int). Used whenever two literals of possibly different
// declared types are compared (spec 4.2 "coerces via the canonical parse
// of their declared type").
func (l Literal) Canonical() (any, error) {
	switch l.Type {
	case Int:
		v, err := strconv.ParseInt(l.Text, 10, 64)
		if err != nil {
			return nil, errs.Invalid("value %q is not a valid int", l.Text)
		}
		return v, nil
	case Boolean:
		switch strings.ToLower(l.Text) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, errs.Invalid("value %q is not a valid boolean", l.Text)
	case Decimal:
		v, err := strconv.ParseFloat(l.Text, 64)
		if err != nil {
			return nil, errs.Invalid("value %q is not a valid decimal", l.Text)
		}
		return v, nil
	default:
		// Date, Time, Duration, Text: compared as their canonical string form.
		return l.Text, nil
	}
}

// Compare returns -1, 0, 1 comparing l to other after canonicalizing both
// by l's declared type.
func (l Literal) Compare(other Literal) (int, error) {
	a, err := l.Canonical()
	if err != nil {
		return 0, err
	}
	b, err := Literal{Text: other.Text, Type: l.Type}.Canonical()
	if err != nil {
		return 0, err
	}
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		default:
			return 0, nil
		}
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0, nil
		}
		if !av && bv {
			return -1, nil
		}
		return 1, nil
	default:
		return strings.Compare(a.(string), b.(string)), nil
	}
}

// Equal reports whether two literals have the same text, without
// canonical coercion; their types are not compared.
func (l Literal) Equal(other Literal) bool {
	return l.Text == other.Text
}
