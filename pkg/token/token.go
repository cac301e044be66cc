package token

import (
	"strconv"
	"strings"

	"github.com/ringkeep/ringnode/pkg/model"
)

// Kind classifies one normalized word for the recursive-descent parser.
type Kind int

const (
	Identifier Kind = iota
	Reserved
	DataTypeWord
	IntLiteral
	DecimalLiteral
	BooleanLiteral
	TextLiteral
	Operator
	Comma
	LParen
	RParen
	LBrace
	RBrace
)

// Comparison operator spellings produced by the character-mapping pass.
const (
	OpGE = "_GE_"
	OpLE = "_LE_"
	OpNE = "_DF_"
)

// Token is one classified lexical unit.
type Token struct {
	Text string
	Kind Kind
}

// Classify assigns a Kind to a raw word, the step between Words() and the
// parser's grammar rules.
func Classify(word string) Token {
	switch word {
	case ",":
		return Token{word, Comma}
	case "(":
		return Token{word, LParen}
	case ")":
		return Token{word, RParen}
	case "{":
		return Token{word, LBrace}
	case "}":
		return Token{word, RBrace}
	case "=", "<", ">", "+", "-", "/", "%", OpGE, OpLE, OpNE:
		return Token{word, Operator}
	}
	if strings.HasPrefix(word, "'") && strings.HasSuffix(word, "'") && len(word) >= 2 {
		return Token{word, TextLiteral}
	}
	if IsReserved(word) {
		return Token{word, Reserved}
	}
	if _, ok := model.ParseDataType(word); ok {
		return Token{word, DataTypeWord}
	}
	if _, err := strconv.ParseInt(word, 10, 64); err == nil {
		return Token{word, IntLiteral}
	}
	if _, err := strconv.ParseFloat(word, 64); err == nil {
		return Token{word, DecimalLiteral}
	}
	if strings.EqualFold(word, "true") || strings.EqualFold(word, "false") {
		return Token{word, BooleanLiteral}
	}
	return Token{word, Identifier}
}

// Tokenize runs the full lexical pipeline: normalize, split, classify.
func Tokenize(query string) []Token {
	words := Words(query)
	toks := make([]Token, len(words))
	for i, w := range words {
		toks[i] = Classify(w)
	}
	return toks
}

// Unquote strips the surrounding single quotes from a TextLiteral's Text.
func Unquote(text string) string {
	if len(text) >= 2 && strings.HasPrefix(text, "'") && strings.HasSuffix(text, "'") {
		return text[1 : len(text)-1]
	}
	return text
}
