// Package compiler lowers template node trees to intermediate render
// programs: one flat, ordered statement list per macro. Expression strings
// are handed to a pluggable engine; everything else is compiled here.
package compiler

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/talc-dev/talc/nodes"
	"github.com/talc-dev/talc/program"
	"github.com/talc-dev/talc/runtime"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("talc.compiler")

// Engine compiles an expression string into statements that bind its value
// to target. The compiler treats engines as opaque; their output is only
// subjected to the dynamic name rewrite.
type Engine interface {
	CompileExpression(text string, target program.Target) ([]program.Stmt, error)
}

// Names the emitted program binds itself; the name rewrite must not touch
// them, and templates may not assign to them.
var internalNames = map[string]bool{
	program.StreamName: true,
	"append":           true,
	"econtext":         true,
	"rcontext":         true,
	"translate":        true,
	"decode":           true,
	"convert":          true,
}

// Names templates may not assign to: the internals plus host helpers whose
// shadowing would corrupt the generated code.
var disallowedNames = map[string]bool{
	program.StreamName: true,
	"append":           true,
	"econtext":         true,
	"rcontext":         true,
	"translate":        true,
	"decode":           true,
	"convert":          true,
	"str":              true,
	"len":              true,
}

// Compiler turns one node tree into one program. It is single-use: state
// (scopes, expression cache, translation blocks) accumulates per tree.
type Compiler struct {
	engine       *exprCompiler
	scopes       []map[string]bool
	translations []*translationBlock
	markers      map[string]bool
	builtins     map[string]bool
	counter      int
}

// New returns a compiler using the given expression engine and the default
// builtin name set.
func New(engine Engine) *Compiler {
	c := &Compiler{
		scopes:   []map[string]bool{{}},
		markers:  map[string]bool{},
		builtins: map[string]bool{},
	}
	for name := range runtime.DefaultBuiltins() {
		c.builtins[name] = true
	}
	c.engine = newExprCompiler(c, engine)
	return c
}

// SetBuiltins replaces the set of names whose reads fall back to host
// builtins when absent from the dynamic context.
func (c *Compiler) SetBuiltins(names []string) {
	c.builtins = map[string]bool{}
	for _, name := range names {
		c.builtins[name] = true
	}
}

// Compile lowers a macro program (or a single macro) to a render program.
func (c *Compiler) Compile(root nodes.Node) (*program.Program, error) {
	var fns []*program.FuncDef
	switch t := root.(type) {
	case *nodes.MacroProgram:
		for _, m := range t.Macros {
			fn, err := c.compileMacro(m)
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		}
		fn, err := c.compileMacro(&t.Macro)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	case *nodes.Macro:
		fn, err := c.compileMacro(t)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	default:
		return nil, fmt.Errorf("cannot compile %T as a program root", root)
	}

	markers := make([]string, 0, len(c.markers))
	for name := range c.markers {
		markers = append(markers, name)
	}
	sort.Strings(markers)

	log.Debugf("compiled %d functions, %d markers", len(fns), len(markers))
	return &program.Program{Markers: markers, Functions: fns}, nil
}

// frameDefaults are the collaborator names every render function copies to
// locals on entry; missing entries fall back to the host defaults at run
// time, so the copies use non-strict fetches.
var frameDefaults = []string{"translate", "decode", "convert"}

func (c *Compiler) compileMacro(m *nodes.Macro) (*program.FuncDef, error) {
	body := []program.Stmt{
		program.Assign{
			Targets: []program.Target{program.NameTarget{Name: "_i18n_domain"}},
			Value:   program.Val{Value: nil},
		},
	}
	for _, name := range frameDefaults {
		body = append(body, program.Assign{
			Targets: []program.Target{program.NameTarget{Name: name}},
			Value:   program.CtxItem{Key: name},
		})
	}
	for _, child := range m.Body {
		stmts, err := c.visit(child)
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
	return &program.FuncDef{Name: macroFunctionName(m.Name), Body: body}, nil
}

func macroFunctionName(name string) string {
	if name == "" {
		return "render"
	}
	return "render_" + mangle(name)
}

func (c *Compiler) visit(node nodes.Node) ([]program.Stmt, error) {
	if node == nil {
		return nil, nil
	}
	switch t := node.(type) {
	case *nodes.Text:
		return []program.Stmt{program.Emit{
			To:    program.StreamName,
			Value: program.Str{Value: t.Value},
		}}, nil
	case *nodes.Sequence:
		var out []program.Stmt
		for _, item := range t.Items {
			stmts, err := c.visit(item)
			if err != nil {
				return nil, err
			}
			out = append(out, stmts...)
		}
		return out, nil
	case *nodes.Element:
		return c.visitElement(t)
	case *nodes.Start:
		return c.visitStart(t)
	case *nodes.End:
		return []program.Stmt{program.Emit{
			To:    program.StreamName,
			Value: program.Str{Value: t.Prefix + t.Name + t.Space + t.Suffix},
		}}, nil
	case *nodes.Attribute:
		return c.visitAttribute(t)
	case *nodes.Content:
		return c.visitContent(t)
	case *nodes.Interpolation:
		return c.visitInterpolation(t)
	case *nodes.Condition:
		return c.visitCondition(t)
	case *nodes.Assignment:
		return c.visitAssignment(t)
	case *nodes.Define:
		return c.visitDefine(t)
	case *nodes.Repeat:
		return c.visitRepeat(t)
	case *nodes.Translate:
		return c.visitTranslate(t)
	case *nodes.Name:
		return c.visitName(t)
	case *nodes.Domain:
		return c.visitDomain(t)
	case *nodes.OnError:
		return c.visitOnError(t)
	case *nodes.Cache:
		return c.visitCache(t)
	case *nodes.UseInternalMacro:
		return c.visitUseInternalMacro(t)
	case *nodes.UseMacro:
		return c.visitUseMacro(t)
	case *nodes.DefineSlot:
		return c.visitDefineSlot(t)
	default:
		return nil, fmt.Errorf("unhandled node type %T", node)
	}
}

func (c *Compiler) visitElement(node *nodes.Element) ([]program.Stmt, error) {
	out, err := c.visit(node.Start)
	if err != nil {
		return nil, err
	}
	content, err := c.visit(node.Content)
	if err != nil {
		return nil, err
	}
	out = append(out, content...)
	end, err := c.visit(node.End)
	if err != nil {
		return nil, err
	}
	return append(out, end...), nil
}

func (c *Compiler) visitStart(node *nodes.Start) ([]program.Stmt, error) {
	out := []program.Stmt{
		program.Comment{Text: " " + node.Prefix + node.Name},
		program.Emit{
			To:    program.StreamName,
			Value: program.Str{Value: node.Prefix + node.Name},
		},
	}
	for _, attr := range node.Attributes {
		stmts, err := c.visit(attr)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return append(out, program.Emit{
		To:    program.StreamName,
		Value: program.Str{Value: node.Suffix},
	}), nil
}

func (c *Compiler) visitAttribute(node *nodes.Attribute) ([]program.Stmt, error) {
	target := c.fresh("attr_" + mangle(node.Name))
	out, err := c.engine.compile(node.Expression, program.NameTarget{Name: target})
	if err != nil {
		return nil, err
	}
	out = append(out, program.Assign{
		Targets: []program.Target{program.NameTarget{Name: target}},
		Value:   program.Escape{X: program.Name{ID: target}, Quote: node.Quote},
	})
	prefix := node.Space + node.Name + node.Eq + node.Quote
	return append(out, program.If{
		Cond: program.BinOp{Op: "isnot", X: program.Name{ID: target}, Y: program.Val{Value: nil}},
		Then: []program.Stmt{program.Emit{
			To: program.StreamName,
			Value: program.Concat{Parts: []program.Expr{
				program.Str{Value: prefix},
				program.Name{ID: target},
				program.Str{Value: node.Quote},
			}},
		}},
	}), nil
}

func (c *Compiler) visitContent(node *nodes.Content) ([]program.Stmt, error) {
	const target = "_content"
	out, err := c.engine.compile(node.Expression, program.NameTarget{Name: target})
	if err != nil {
		return nil, err
	}
	var value program.Expr
	switch {
	case node.Msgid != "":
		value = program.TranslateCall{
			Msgid:   program.Name{ID: target},
			Default: program.Name{ID: target},
		}
	case node.Escape:
		value = program.Escape{X: program.Name{ID: target}}
	default:
		value = program.Convert{X: program.Name{ID: target}}
	}
	out = append(out, program.Assign{
		Targets: []program.Target{program.NameTarget{Name: target}},
		Value:   value,
	})
	return append(out, program.If{
		Cond: program.BinOp{Op: "isnot", X: program.Name{ID: target}, Y: program.Val{Value: nil}},
		Then: []program.Stmt{program.Emit{
			To:    program.StreamName,
			Value: program.Name{ID: target},
		}},
	}), nil
}

func (c *Compiler) visitCondition(node *nodes.Condition) ([]program.Stmt, error) {
	out, err := c.engine.compile(node.Expression, program.NameTarget{Name: "_condition"})
	if err != nil {
		return nil, err
	}
	then, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}
	orelse, err := c.visit(node.Orelse)
	if err != nil {
		return nil, err
	}
	return append(out, program.If{
		Cond: program.Name{ID: "_condition"},
		Then: then,
		Else: orelse,
	}), nil
}

func (c *Compiler) visitAssignment(node *nodes.Assignment) ([]program.Stmt, error) {
	for _, name := range node.Names {
		if disallowedNames[name] {
			return nil, fmt.Errorf("assignment name is reserved: %s", name)
		}
	}
	out, err := c.engine.compile(node.Expression, program.NameTarget{Name: "_value"})
	if err != nil {
		return nil, err
	}

	out = append(out, program.Assign{
		Targets: []program.Target{ctxTargets(program.CtxE, node.Names)},
		Value:   program.Name{ID: "_value"},
	})
	if !node.Local {
		for _, name := range node.Names {
			out = append(out, program.Assign{
				Targets: []program.Target{program.CtxTarget{Ctx: program.CtxR, Key: name}},
				Value:   program.Name{ID: "_value"},
			})
		}
	}
	return out, nil
}

// ctxTargets builds the store target for a (possibly destructuring) name
// list in the given context.
func ctxTargets(ctx program.CtxKind, names []string) program.Target {
	if len(names) == 1 {
		return program.CtxTarget{Ctx: ctx, Key: names[0]}
	}
	elems := make([]program.Target, len(names))
	for i, name := range names {
		elems[i] = program.CtxTarget{Ctx: ctx, Key: name}
	}
	return program.TupleTarget{Elems: elems}
}

func (c *Compiler) visitDefine(node *nodes.Define) ([]program.Stmt, error) {
	c.pushScope()
	defer c.popScope()

	var out []program.Stmt
	var groups []backupGroup
	for _, assignment := range node.Assignments {
		group := backupGroup{names: assignment.Names, id: c.nextID()}
		enter, err := c.enterAssignment(group)
		if err != nil {
			return nil, err
		}
		out = append(out, enter...)
		stmts, err := c.visitAssignment(assignment)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
		groups = append(groups, group)
	}

	body, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}
	out = append(out, body...)

	for _, group := range groups {
		out = append(out, c.leaveAssignment(group)...)
	}
	return out, nil
}

func (c *Compiler) visitDomain(node *nodes.Domain) ([]program.Stmt, error) {
	backup := c.fresh("previous_i18n_domain")
	out := []program.Stmt{
		program.Assign{
			Targets: []program.Target{program.NameTarget{Name: backup}},
			Value:   program.Name{ID: "_i18n_domain"},
		},
		program.Assign{
			Targets: []program.Target{program.NameTarget{Name: "_i18n_domain"}},
			Value:   program.Str{Value: node.Name},
		},
	}
	body, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}
	out = append(out, body...)
	return append(out, program.Assign{
		Targets: []program.Target{program.NameTarget{Name: "_i18n_domain"}},
		Value:   program.Name{ID: backup},
	}), nil
}

func (c *Compiler) visitOnError(node *nodes.OnError) ([]program.Stmt, error) {
	body, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}
	fallback, err := c.visit(node.Fallback)
	if err != nil {
		return nil, err
	}
	return []program.Stmt{program.Guard{Body: body, Fallback: fallback}}, nil
}

func (c *Compiler) visitCache(node *nodes.Cache) ([]program.Stmt, error) {
	// Pre-evaluating registers each expression in the identity cache, so
	// occurrences inside the body reuse the results.
	var out []program.Stmt
	for _, expr := range node.Expressions {
		stmts, err := c.engine.compile(expr, program.NameTarget{Name: c.fresh("value")})
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	body, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}
	return append(out, body...), nil
}

// nextID returns a compilation-unique number for generated names.
func (c *Compiler) nextID() int {
	c.counter++
	return c.counter
}

// fresh mints a unique underscore-prefixed local name. The prefix keeps all
// generated locals out of the dynamic name rewrite.
func (c *Compiler) fresh(stem string) string {
	return fmt.Sprintf("_%s_%d", stem, c.nextID())
}

var mangleRe = regexp.MustCompile(`[\-: ]`)

// mangle makes a template-supplied name safe for use inside a generated
// identifier.
func mangle(name string) string {
	return strings.ReplaceAll(mangleRe.ReplaceAllString(name, "_"), "\n", "")
}
