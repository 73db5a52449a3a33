package compiler

import (
	"fmt"
	"strings"

	"github.com/talc-dev/talc/nodes"
	"github.com/talc-dev/talc/program"
	"github.com/talc-dev/talc/tales"
)

// exprCompiler lowers expression nodes to statements. Results are cached by
// node identity: compiling the same node instance twice yields a reference
// to the first result's binding. A zero identity opts out of caching.
type exprCompiler struct {
	c      *Compiler
	engine Engine
	cache  map[nodes.ID]program.Name
}

func newExprCompiler(c *Compiler, engine Engine) *exprCompiler {
	return &exprCompiler{
		c:      c,
		engine: engine,
		cache:  map[nodes.ID]program.Name{},
	}
}

// compile is the dispatcher's entry point: lower the expression, then apply
// the dynamic name rewrite to the result.
func (e *exprCompiler) compile(expr nodes.Expr, target program.Target) ([]program.Stmt, error) {
	stmts, err := e.translate(expr, target)
	if err != nil {
		return nil, err
	}
	return e.rewriteStmts(stmts), nil
}

// compileText compiles a raw expression string, as found inside
// interpolations. Each call mints a fresh node, so nothing is cached.
func (e *exprCompiler) compileText(text string, target program.Target) ([]program.Stmt, error) {
	return e.translate(&nodes.Expression{Value: text}, target)
}

// translateRaw binds an already-lowered value expression to target. Raw
// expressions are self-contained, so reuse re-emits the expression itself
// rather than a reference to an earlier binding.
func (e *exprCompiler) translateRaw(raw program.Expr, target program.Target) []program.Stmt {
	return []program.Stmt{program.Assign{Targets: []program.Target{target}, Value: raw}}
}

func (e *exprCompiler) translate(expr nodes.Expr, target program.Target) ([]program.Stmt, error) {
	comment := program.Comment{Text: fmt.Sprintf(" %s -> %s", exprSource(expr), targetName(target))}

	id := expr.Identity()
	if id != 0 {
		if cached, ok := e.cache[id]; ok {
			return []program.Stmt{comment, program.Assign{
				Targets: []program.Target{target},
				Value:   cached,
			}}, nil
		}
	}

	var stmts []program.Stmt
	var err error
	switch t := expr.(type) {
	case *nodes.Expression:
		stmts, err = e.engine.CompileExpression(t.Value, target)
	case *nodes.Negate:
		stmts, err = e.visitNegate(t, target)
	case *nodes.Identity:
		stmts, err = e.visitComparison("is", t.Expression, t.Value, target)
	case *nodes.Equality:
		stmts, err = e.visitComparison("==", t.Expression, t.Value, target)
	case *nodes.Interp:
		stmts, err = e.visitInterp(t, target)
	case *nodes.Marker:
		e.c.markers[t.Name] = true
		stmts = e.translateRaw(program.MarkerRef{Name: t.Name}, target)
	case *nodes.Translated:
		stmts, err = e.visitTranslated(t, target)
	default:
		err = fmt.Errorf("unhandled expression type %T", expr)
	}
	if err != nil {
		return nil, err
	}

	// Evaluating the same expression instance again must reuse this result,
	// so the value is parked in a dedicated slot keyed by node identity.
	if id != 0 {
		slot := e.c.fresh("cache")
		stmts = append(stmts, program.Assign{
			Targets: []program.Target{program.NameTarget{Name: slot}},
			Value:   loadTarget(target),
		})
		e.cache[id] = program.Name{ID: slot}
	}

	return append([]program.Stmt{comment}, stmts...), nil
}

func (e *exprCompiler) visitNegate(node *nodes.Negate, target program.Target) ([]program.Stmt, error) {
	stmts, err := e.translate(node.Value, target)
	if err != nil {
		return nil, err
	}
	return append(stmts, program.Assign{
		Targets: []program.Target{target},
		Value:   program.UnaryOp{Op: "not", X: loadTarget(target)},
	}), nil
}

func (e *exprCompiler) visitComparison(op string, left, right nodes.Expr, target program.Target) ([]program.Stmt, error) {
	stmts, err := e.translate(left, program.NameTarget{Name: "_expression"})
	if err != nil {
		return nil, err
	}
	more, err := e.translate(right, program.NameTarget{Name: "_value"})
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, more...)
	return append(stmts, program.Assign{
		Targets: []program.Target{target},
		Value: program.BinOp{
			Op: op,
			X:  program.Name{ID: "_expression"},
			Y:  program.Name{ID: "_value"},
		},
	}), nil
}

func (e *exprCompiler) visitInterp(node *nodes.Interp, target program.Target) ([]program.Stmt, error) {
	parts, err := tales.Split(node.Value)
	if err != nil {
		return nil, err
	}
	var stmts []program.Stmt
	var exprs []program.Expr
	for _, part := range parts {
		if part.Expr == "" {
			exprs = append(exprs, program.Str{Value: part.Text})
			continue
		}
		tmp := e.c.fresh("part")
		sub, err := e.compileText(part.Expr, program.NameTarget{Name: tmp})
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, sub...)
		exprs = append(exprs, program.Name{ID: tmp})
	}
	return append(stmts, program.Assign{
		Targets: []program.Target{target},
		Value:   program.Concat{Parts: exprs},
	}), nil
}

func (e *exprCompiler) visitTranslated(node *nodes.Translated, target program.Target) ([]program.Stmt, error) {
	stmts, err := e.translate(node.Node, target)
	if err != nil {
		return nil, err
	}
	msgid := program.Expr(loadTarget(target))
	if node.Msgid != "" {
		msgid = program.Str{Value: node.Msgid}
	}
	return append(stmts, program.Assign{
		Targets: []program.Target{target},
		Value: program.TranslateCall{
			Msgid:   msgid,
			Default: loadTarget(target),
		},
	}), nil
}

// loadTarget returns the expression that reads a target back.
func loadTarget(target program.Target) program.Expr {
	switch t := target.(type) {
	case program.NameTarget:
		return program.Name{ID: t.Name}
	case program.CtxTarget:
		return program.CtxItem{Key: t.Key}
	}
	return program.Val{Value: nil}
}

func targetName(target program.Target) string {
	switch t := target.(type) {
	case program.NameTarget:
		return t.Name
	case program.CtxTarget:
		return fmt.Sprintf("%s[%q]", t.Ctx, t.Key)
	}
	return "?"
}

// exprSource reconstructs a short description of an expression node for the
// generated program's comments.
func exprSource(expr nodes.Expr) string {
	switch t := expr.(type) {
	case *nodes.Expression:
		return fmt.Sprintf("%q", t.Value)
	case *nodes.Negate:
		return "not " + exprSource(t.Value)
	case *nodes.Identity:
		return exprSource(t.Expression) + " is " + exprSource(t.Value)
	case *nodes.Equality:
		return exprSource(t.Expression) + " == " + exprSource(t.Value)
	case *nodes.Interp:
		return fmt.Sprintf("interp %q", t.Value)
	case *nodes.Marker:
		return "marker " + t.Name
	case *nodes.Translated:
		return "translated " + exprSource(t.Node)
	}
	return fmt.Sprintf("%T", expr)
}

// ---------------------------------------------------------------------------
// Dynamic name rewrite
// ---------------------------------------------------------------------------

// The engine emits free names for anything it does not bind itself. The
// rewrite fixes their scope: writes go to the dynamic context; reads of
// builtin names fetch from the dynamic context with the host builtin as
// fallback; other reads are strict context fetches. Underscore-prefixed
// locals and the program's own internals stay untouched.

func (e *exprCompiler) freeName(name string) bool {
	return !strings.HasPrefix(name, "_") && !internalNames[name]
}

func (e *exprCompiler) rewriteStmts(stmts []program.Stmt) []program.Stmt {
	out := make([]program.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = e.rewriteStmt(s)
	}
	return out
}

func (e *exprCompiler) rewriteStmt(s program.Stmt) program.Stmt {
	switch t := s.(type) {
	case program.Emit:
		t.Value = e.rewriteExpr(t.Value)
		return t
	case program.Assign:
		targets := make([]program.Target, len(t.Targets))
		for i, tgt := range t.Targets {
			targets[i] = e.rewriteTarget(tgt)
		}
		t.Targets = targets
		t.Value = e.rewriteExpr(t.Value)
		return t
	case program.If:
		t.Cond = e.rewriteExpr(t.Cond)
		t.Then = e.rewriteStmts(t.Then)
		t.Else = e.rewriteStmts(t.Else)
		return t
	case program.For:
		t.Body = e.rewriteStmts(t.Body)
		return t
	case program.Guard:
		t.Body = e.rewriteStmts(t.Body)
		t.Fallback = e.rewriteStmts(t.Fallback)
		return t
	case program.FuncDef:
		t.Body = e.rewriteStmts(t.Body)
		return t
	case program.Call:
		t.Callee = e.rewriteExpr(t.Callee)
		return t
	}
	return s
}

func (e *exprCompiler) rewriteTarget(t program.Target) program.Target {
	switch tt := t.(type) {
	case program.NameTarget:
		if e.freeName(tt.Name) {
			return program.CtxTarget{Ctx: program.CtxE, Key: tt.Name}
		}
		return tt
	case program.TupleTarget:
		elems := make([]program.Target, len(tt.Elems))
		for i, el := range tt.Elems {
			elems[i] = e.rewriteTarget(el)
		}
		return program.TupleTarget{Elems: elems}
	}
	return t
}

func (e *exprCompiler) rewriteExpr(x program.Expr) program.Expr {
	switch t := x.(type) {
	case program.Name:
		if !e.freeName(t.ID) {
			return t
		}
		if e.c.builtins[t.ID] {
			return program.CtxGet{Key: t.ID, Default: program.BuiltinRef{Name: t.ID}}
		}
		return program.CtxItem{Key: t.ID}
	case program.UnaryOp:
		t.X = e.rewriteExpr(t.X)
		return t
	case program.BinOp:
		t.X = e.rewriteExpr(t.X)
		t.Y = e.rewriteExpr(t.Y)
		return t
	case program.Path:
		t.Root = e.rewriteExpr(t.Root)
		return t
	case program.Concat:
		parts := make([]program.Expr, len(t.Parts))
		for i, p := range t.Parts {
			parts[i] = e.rewriteExpr(p)
		}
		return program.Concat{Parts: parts}
	case program.CollapseWS:
		t.X = e.rewriteExpr(t.X)
		return t
	case program.Convert:
		t.X = e.rewriteExpr(t.X)
		return t
	case program.Escape:
		t.X = e.rewriteExpr(t.X)
		return t
	case program.CtxGet:
		if t.Default != nil {
			t.Default = e.rewriteExpr(t.Default)
		}
		return t
	case program.MapLit:
		values := make([]program.Expr, len(t.Values))
		for i, v := range t.Values {
			values[i] = e.rewriteExpr(v)
		}
		t.Values = values
		return t
	case program.TranslateCall:
		t.Msgid = e.rewriteExpr(t.Msgid)
		if t.Mapping != nil {
			t.Mapping = e.rewriteExpr(t.Mapping)
		}
		if t.Default != nil {
			t.Default = e.rewriteExpr(t.Default)
		}
		return t
	}
	return x
}
