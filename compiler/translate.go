package compiler

import (
	"fmt"

	"github.com/talc-dev/talc/nodes"
	"github.com/talc-dev/talc/program"
	"github.com/talc-dev/talc/tales"
)

// translationBlock tracks one active translation body: its unique number
// (used in generated buffer names) and its named sub-blocks in declaration
// order.
type translationBlock struct {
	id    int
	names []string
	seen  map[string]bool
}

// visitTranslate compiles a translation body. The body renders into a local
// buffer; the collapsed buffer text becomes the message id (unless one is
// given), named sub-blocks become the mapping, and the translate call's
// result is emitted in place of the body.
func (c *Compiler) visitTranslate(node *nodes.Translate) ([]program.Stmt, error) {
	block := &translationBlock{id: c.nextID(), seen: map[string]bool{}}
	c.translations = append(c.translations, block)
	defer func() {
		c.translations = c.translations[:len(c.translations)-1]
	}()

	buffer := fmt.Sprintf("_stream_%d", block.id)
	inner, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}

	out := []program.Stmt{program.NewBuffer{Name: buffer}}
	out = append(out, redirectOutput(inner, buffer)...)

	msgidVar := fmt.Sprintf("_msgid_%d", block.id)
	out = append(out, program.Assign{
		Targets: []program.Target{program.NameTarget{Name: msgidVar}},
		Value:   program.CollapseWS{X: program.JoinBuf{Buffer: buffer}},
	})

	var mapping program.Expr
	if len(block.names) > 0 {
		lit := program.MapLit{}
		for _, name := range block.names {
			lit.Keys = append(lit.Keys, name)
			lit.Values = append(lit.Values, program.JoinBuf{
				Buffer: nameBuffer(block, name),
			})
		}
		mapping = lit
	}

	msgid := program.Expr(program.Name{ID: msgidVar})
	if node.Msgid != "" {
		msgid = program.Str{Value: node.Msgid}
	}
	return append(out, program.Emit{
		To: program.StreamName,
		Value: program.TranslateCall{
			Msgid:   msgid,
			Mapping: mapping,
			Default: program.Name{ID: msgidVar},
		},
	}), nil
}

// visitName compiles a named sub-block of the enclosing translation body.
// Its rendered text goes to a dedicated buffer; the message id keeps a
// ${name} placeholder where the sub-block stood.
func (c *Compiler) visitName(node *nodes.Name) ([]program.Stmt, error) {
	if len(c.translations) == 0 {
		return nil, fmt.Errorf("names are only allowed inside translations: %s", node.Name)
	}
	block := c.translations[len(c.translations)-1]
	if block.seen[node.Name] {
		return nil, fmt.Errorf("duplicate translation name: %s", node.Name)
	}
	block.seen[node.Name] = true
	block.names = append(block.names, node.Name)

	buffer := nameBuffer(block, node.Name)
	inner, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}

	out := []program.Stmt{program.NewBuffer{Name: buffer}}
	out = append(out, redirectOutput(inner, buffer)...)
	return append(out, program.Emit{
		To:    program.StreamName,
		Value: program.Str{Value: "${" + node.Name + "}"},
	}), nil
}

func nameBuffer(block *translationBlock, name string) string {
	return fmt.Sprintf("_stream_%d_%s", block.id, mangle(name))
}

// redirectOutput rewrites stream emissions to go to a local buffer instead.
// Nested function bodies are left alone; they write to the stream of their
// own invocation.
func redirectOutput(stmts []program.Stmt, buffer string) []program.Stmt {
	out := make([]program.Stmt, len(stmts))
	for i, s := range stmts {
		switch t := s.(type) {
		case program.Emit:
			if t.To == program.StreamName {
				t.To = buffer
			}
			out[i] = t
		case program.If:
			t.Then = redirectOutput(t.Then, buffer)
			t.Else = redirectOutput(t.Else, buffer)
			out[i] = t
		case program.For:
			t.Body = redirectOutput(t.Body, buffer)
			out[i] = t
		case program.Guard:
			t.Body = redirectOutput(t.Body, buffer)
			t.Fallback = redirectOutput(t.Fallback, buffer)
			out[i] = t
		default:
			out[i] = s
		}
	}
	return out
}

// visitInterpolation compiles mixed text: literal runs emit as-is, each
// substituted expression is evaluated and escaped on its own.
func (c *Compiler) visitInterpolation(node *nodes.Interpolation) ([]program.Stmt, error) {
	parts, err := tales.Split(node.Value)
	if err != nil {
		return nil, err
	}
	var out []program.Stmt
	var exprs []program.Expr
	for _, part := range parts {
		if part.Expr == "" {
			exprs = append(exprs, program.Str{Value: part.Text})
			continue
		}
		tmp := c.fresh("part")
		sub, err := c.engine.compile(
			&nodes.Expression{Value: part.Expr},
			program.NameTarget{Name: tmp},
		)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
		out = append(out, program.Assign{
			Targets: []program.Target{program.NameTarget{Name: tmp}},
			Value:   program.Escape{X: program.Name{ID: tmp}},
		})
		exprs = append(exprs, program.Name{ID: tmp})
	}
	return append(out, program.Emit{
		To:    program.StreamName,
		Value: program.Concat{Parts: exprs},
	}), nil
}
