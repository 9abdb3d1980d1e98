package shell

import (
	"strings"
	"unicode"
)

// Tokenize splits a raw input line into a command name and argument tokens.
// Runs of whitespace separate tokens; a double- or single-quoted run is one
// token with the quotes stripped. An unterminated quote is kept as a literal
// character rather than reported as an error — lenient by contract.
// No variable expansion and no escape-sequence interpretation happen here.
//
// An empty or all-whitespace line yields an empty command name.
func Tokenize(line string) (string, []string) {
	tokens := splitTokens(strings.TrimSpace(line))
	if len(tokens) == 0 {
		return "", nil
	}
	if len(tokens) == 1 {
		// No arguments: nil, not an empty slice, so history entries
		// serialize args as null consistently.
		return tokens[0], nil
	}
	return tokens[0], tokens[1:]
}

func splitTokens(s string) []string {
	var tokens []string
	var cur strings.Builder
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			flush()
			i++
		case r == '"' || r == '\'':
			// Quoted run: everything up to the matching quote joins the
			// current token. No closing quote means the quote character
			// itself is literal.
			close := indexRune(rs[i+1:], r)
			if close < 0 {
				cur.WriteRune(r)
				inToken = true
				i++
				continue
			}
			cur.WriteString(string(rs[i+1 : i+1+close]))
			inToken = true
			i += close + 2
		default:
			cur.WriteRune(r)
			inToken = true
			i++
		}
	}
	flush()
	return tokens
}

func indexRune(rs []rune, r rune) int {
	for i, c := range rs {
		if c == r {
			return i
		}
	}
	return -1
}
