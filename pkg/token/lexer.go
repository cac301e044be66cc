package token

import (
	"strings"
)

// Words splits raw query text into a flat list of whitespace-delimited
// tokens, first running the character-mapping normalizer over everything
// outside single-quoted string literals (so that punctuation inside a text
// literal like 'a,b' is never mistaken for a clause separator).
func Words(input string) []string {
	var out []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			for _, w := range strings.Fields(buf.String()) {
				out = append(out, w)
			}
			buf.Reset()
		}
	}

	runes := []rune(input)
	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '\'' {
			flush()
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				j++
			}
			if j < len(runes) {
				j++ // include closing quote
			}
			out = append(out, string(runes[i:j]))
			i = j
			continue
		}
		if matched, mapped, width := matchOperator(runes, i); matched {
			buf.WriteString(mapped)
			i += width
			continue
		}
		buf.WriteRune(r)
		i++
	}
	flush()
	return out
}

// matchOperator tries each known mapping at position i. charMappings lists
// two-character operators (">=", "<=", "!=") ahead of their one-character
// prefixes, so ">=" is never split into ">" and "=".
func matchOperator(runes []rune, i int) (matched bool, mapped string, width int) {
	remaining := string(runes[i:])
	for _, m := range charMappings {
		if strings.HasPrefix(remaining, m.from) {
			return true, m.to, len([]rune(m.from))
		}
	}
	return false, "", 0
}
