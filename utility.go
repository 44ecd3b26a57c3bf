package coprocess

import (
	"strings"
	"unicode"
)

// ParseCommandArgs gets a list of strings and splits their content
// into separate arguments, the way a shell would without expanding
// anything: arguments are separated by blanks, and text between single
// or double quotes is kept together, quotes removed. Quoted text can
// be glued to other text, as in --name="a b".
// An unterminated quote runs to the end of its string
func ParseCommandArgs(args ...string) []string {
	a := make([]string, 0)
	for _, s := range args {
		var cur strings.Builder
		inArg := false
		var quote rune

		for _, r := range s {
			switch {
			case quote != 0:
				if r == quote {
					quote = 0
				} else {
					cur.WriteRune(r)
				}
			case r == '\'' || r == '"':
				quote = r
				inArg = true
			case unicode.IsSpace(r):
				if inArg {
					a = append(a, cur.String())
					cur.Reset()
					inArg = false
				}
			default:
				cur.WriteRune(r)
				inArg = true
			}
		}

		if inArg {
			a = append(a, cur.String())
		}
	}

	return a
}
