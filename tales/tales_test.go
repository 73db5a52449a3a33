package tales

import (
	"testing"

	"github.com/talc-dev/talc/program"
)

func compileValue(t *testing.T, text string) program.Expr {
	t.Helper()
	stmts, err := Engine{}.CompileExpression(text, program.NameTarget{Name: "_out"})
	if err != nil {
		t.Fatalf("compile %q: %v", text, err)
	}
	if len(stmts) != 1 {
		t.Fatalf("compile %q: %d statements, want 1", text, len(stmts))
	}
	assign, ok := stmts[0].(program.Assign)
	if !ok {
		t.Fatalf("compile %q: statement is %T, want Assign", text, stmts[0])
	}
	return assign.Value
}

func TestCompileStringLiteral(t *testing.T) {
	v := compileValue(t, "'hello'")
	if s, ok := v.(program.Str); !ok || s.Value != "hello" {
		t.Errorf("value = %#v, want Str hello", v)
	}
}

func TestCompileIntLiteral(t *testing.T) {
	v := compileValue(t, "42")
	if n, ok := v.(program.Num); !ok || n.Value != 42 {
		t.Errorf("value = %#v, want Num 42", v)
	}
}

func TestCompileNothing(t *testing.T) {
	v := compileValue(t, "nothing")
	if val, ok := v.(program.Val); !ok || val.Value != nil {
		t.Errorf("value = %#v, want nil Val", v)
	}
}

func TestCompileName(t *testing.T) {
	v := compileValue(t, "user")
	if n, ok := v.(program.Name); !ok || n.ID != "user" {
		t.Errorf("value = %#v, want Name user", v)
	}
}

func TestCompilePath(t *testing.T) {
	v := compileValue(t, "user.address.city")
	p, ok := v.(program.Path)
	if !ok {
		t.Fatalf("value = %#v, want Path", v)
	}
	root, ok := p.Root.(program.Name)
	if !ok || root.ID != "user" {
		t.Errorf("root = %#v, want Name user", p.Root)
	}
	if len(p.Steps) != 2 || p.Steps[0] != "address" || p.Steps[1] != "city" {
		t.Errorf("steps = %v, want [address city]", p.Steps)
	}
}

func TestSlashSeparator(t *testing.T) {
	v := compileValue(t, "user/name")
	p, ok := v.(program.Path)
	if !ok || len(p.Steps) != 1 || p.Steps[0] != "name" {
		t.Errorf("value = %#v, want one-step Path", v)
	}
}

func TestNumericPathSegment(t *testing.T) {
	v := compileValue(t, "items.0")
	p, ok := v.(program.Path)
	if !ok || len(p.Steps) != 1 || p.Steps[0] != "0" {
		t.Errorf("value = %#v, want index step", v)
	}
}

func TestNotPrefix(t *testing.T) {
	v := compileValue(t, "not:flag")
	u, ok := v.(program.UnaryOp)
	if !ok || u.Op != "not" {
		t.Fatalf("value = %#v, want not UnaryOp", v)
	}
	if n, ok := u.X.(program.Name); !ok || n.ID != "flag" {
		t.Errorf("operand = %#v, want Name flag", u.X)
	}
}

func TestBadExpressions(t *testing.T) {
	for _, text := range []string{"", "9lives", "a..b!", "not:"} {
		if _, err := (Engine{}).CompileExpression(text, program.NameTarget{Name: "_out"}); err == nil {
			t.Errorf("compile %q: expected error", text)
		}
	}
}

func TestSplitLiteralOnly(t *testing.T) {
	parts, err := Split("plain text")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(parts) != 1 || parts[0].Text != "plain text" {
		t.Errorf("parts = %#v", parts)
	}
}

func TestSplitBraced(t *testing.T) {
	parts, err := Split("a ${x.y} b")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(parts) != 3 {
		t.Fatalf("parts = %#v, want 3", parts)
	}
	if parts[0].Text != "a " || parts[1].Expr != "x.y" || parts[2].Text != " b" {
		t.Errorf("parts = %#v", parts)
	}
}

func TestSplitShorthand(t *testing.T) {
	parts, err := Split("hi $name!")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(parts) != 3 || parts[1].Expr != "name" || parts[2].Text != "!" {
		t.Errorf("parts = %#v", parts)
	}
}

func TestSplitDollarEscape(t *testing.T) {
	parts, err := Split("cost: $$5")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(parts) != 1 || parts[0].Text != "cost: $5" {
		t.Errorf("parts = %#v", parts)
	}
}

func TestSplitNestedBraces(t *testing.T) {
	parts, err := Split("${ {nested} }")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(parts) != 1 || parts[0].Expr != " {nested} " {
		t.Errorf("parts = %#v", parts)
	}
}

func TestSplitErrors(t *testing.T) {
	for _, text := range []string{"${unclosed", "tail$", "lone $ sign"} {
		if _, err := Split(text); err == nil {
			t.Errorf("split %q: expected error", text)
		}
	}
}
