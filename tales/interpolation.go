package tales

import (
	"fmt"
	"strings"
)

// Part is one piece of an interpolated string: literal text, or an
// expression to substitute.
type Part struct {
	Text string
	Expr string
}

// Split cuts an interpolated string into literal and substitution parts.
// ${expr} substitutes an expression (braces nest); $name is shorthand for
// a single identifier; $$ is a literal dollar sign.
func Split(value string) ([]Part, error) {
	var parts []Part
	var literal strings.Builder

	flush := func() {
		if literal.Len() > 0 {
			parts = append(parts, Part{Text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(value); {
		c := value[i]
		if c != '$' {
			literal.WriteByte(c)
			i++
			continue
		}
		if i+1 >= len(value) {
			return nil, fmt.Errorf("unterminated $ at end of %q", value)
		}
		switch next := value[i+1]; {
		case next == '$':
			literal.WriteByte('$')
			i += 2
		case next == '{':
			end, err := matchBrace(value, i+1)
			if err != nil {
				return nil, err
			}
			flush()
			parts = append(parts, Part{Expr: value[i+2 : end]})
			i = end + 1
		default:
			j := i + 1
			for j < len(value) && isIdentByte(value[j], j > i+1) {
				j++
			}
			if j == i+1 {
				return nil, fmt.Errorf("lone $ in %q", value)
			}
			flush()
			parts = append(parts, Part{Expr: value[i+1 : j]})
			i = j
		}
	}
	flush()
	return parts, nil
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(value string, open int) (int, error) {
	depth := 0
	for i := open; i < len(value); i++ {
		switch value[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced braces in %q", value)
}

func isIdentByte(c byte, tail bool) bool {
	switch {
	case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		return true
	case tail && c >= '0' && c <= '9':
		return true
	}
	return false
}
