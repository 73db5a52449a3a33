// Package tales provides the default expression engine: path expressions
// evaluated against the dynamic context, lowered to single assignments in
// the intermediate program. The compiler treats the engine as opaque; any
// implementation of its Engine interface may replace this one.
package tales

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/talc-dev/talc/program"
)

// Engine compiles path expressions.
//
// Grammar: an optional "not:" prefix, then either a quoted string literal,
// an integer literal, the keyword "nothing" (the nil value), or a path of
// identifier segments separated by "." or "/". The path root is left as a
// free name; the compiler's dynamic name rewrite decides how it resolves.
type Engine struct{}

// CompileExpression lowers an expression string to statements that leave
// its value bound to target.
func (Engine) CompileExpression(text string, target program.Target) ([]program.Stmt, error) {
	expr, err := lower(strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	return []program.Stmt{
		program.Assign{Targets: []program.Target{target}, Value: expr},
	}, nil
}

func lower(text string) (program.Expr, error) {
	if rest, ok := strings.CutPrefix(text, "not:"); ok {
		inner, err := lower(strings.TrimSpace(rest))
		if err != nil {
			return nil, err
		}
		return program.UnaryOp{Op: "not", X: inner}, nil
	}

	switch {
	case text == "":
		return nil, fmt.Errorf("empty expression")
	case text == "nothing":
		return program.Val{Value: nil}, nil
	case isQuoted(text):
		return program.Str{Value: text[1 : len(text)-1]}, nil
	}

	if n, err := strconv.Atoi(text); err == nil {
		return program.Num{Value: n}, nil
	}

	segments := splitPath(text)
	if len(segments) == 0 || !isIdentifier(segments[0]) {
		return nil, fmt.Errorf("bad expression: %q", text)
	}
	for _, seg := range segments[1:] {
		if !isIdentifier(seg) && !isIndex(seg) {
			return nil, fmt.Errorf("bad path segment %q in %q", seg, text)
		}
	}

	root := program.Name{ID: segments[0]}
	if len(segments) == 1 {
		return root, nil
	}
	return program.Path{Root: root, Steps: segments[1:]}, nil
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '\'' || q == '"') && s[len(s)-1] == q &&
		!strings.ContainsRune(s[1:len(s)-1], rune(q))
}

func splitPath(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '/'
	})
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
