// Package token implements the lexical layer of the query language: a
// character-mapping normalizer, a reserved-word table, and a whitespace
// tokenizer that together turn raw query text into a flat word list for
// the recursive-descent parser.
package token

// charMappings pads operator/punctuation runs with surrounding spaces (or
// collapses them to nothing, for ';') so that a plain whitespace split
// produces clean tokens without a hand-rolled character scanner. Multi-
// character operators are listed before the single-character ones they
// contain so replacement order never sees a partial match first.
var charMappings = []struct {
	from string
	to   string
}{
	{">=", " _GE_ "},
	{"<=", " _LE_ "},
	{"!=", " _DF_ "},
	{"+", " + "},
	{"-", " - "},
	{"/", " / "},
	{"%", " % "},
	{"<", " < "},
	{">", " > "},
	{"(", " ( "},
	{")", " ) "},
	{"}", " } "},
	{"{", " { "},
	{";", ""},
	{",", " , "},
}

// IsMapped reports whether s is one of the recognized operator/punctuation
// sequences.
func IsMapped(s string) bool {
	for _, m := range charMappings {
		if m.from == s {
			return true
		}
	}
	return false
}

// GetMapping returns the padded replacement for s, or ok=false if s is not
// a recognized mapping.
func GetMapping(s string) (string, bool) {
	for _, m := range charMappings {
		if m.from == s {
			return m.to, true
		}
	}
	return "", false
}
