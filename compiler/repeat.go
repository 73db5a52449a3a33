package compiler

import (
	"fmt"

	"github.com/talc-dev/talc/nodes"
	"github.com/talc-dev/talc/program"
)

// visitRepeat compiles a loop. The raw iterable goes through the dynamic
// context's repeat collaborator, which wraps it with per-name iteration
// metadata and a countdown index. Loop names are pre-bound to nil so the
// body sees them even for an empty iterable, and restored like any other
// assignment on exit. Inter-item whitespace is emitted while the countdown
// shows items remaining, never after the last.
func (c *Compiler) visitRepeat(node *nodes.Repeat) ([]program.Stmt, error) {
	c.pushScope()
	defer c.popScope()

	group := backupGroup{names: node.Names, id: c.nextID()}
	out, err := c.enterAssignment(group)
	if err != nil {
		return nil, err
	}

	stmts, err := c.engine.compile(node.Expression, program.NameTarget{Name: "_iterator"})
	if err != nil {
		return nil, err
	}
	out = append(out, stmts...)

	index := fmt.Sprintf("_index_%d", group.id)
	out = append(out, program.SetupRepeat{
		Names:  node.Names,
		Source: "_iterator",
		Iter:   "_iterator",
		Index:  index,
	})

	prebind := make([]program.Target, len(node.Names))
	for i, name := range node.Names {
		prebind[i] = program.CtxTarget{Ctx: program.CtxE, Key: name}
	}
	out = append(out, program.Assign{Targets: prebind, Value: program.Val{Value: nil}})

	item := fmt.Sprintf("_item_%d", group.id)
	targets := []program.Target{ctxTargets(program.CtxE, node.Names)}
	if !node.Local {
		targets = append(targets, ctxTargets(program.CtxR, node.Names))
	}
	body := []program.Stmt{program.Assign{Targets: targets, Value: program.Name{ID: item}}}

	inner, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}
	body = append(body, inner...)

	body = append(body,
		program.Assign{
			Targets: []program.Target{program.NameTarget{Name: index}},
			Value:   program.BinOp{Op: "-", X: program.Name{ID: index}, Y: program.Num{Value: 1}},
		},
		program.If{
			Cond: program.BinOp{Op: ">", X: program.Name{ID: index}, Y: program.Num{Value: 0}},
			Then: []program.Stmt{program.Emit{
				To:    program.StreamName,
				Value: program.Str{Value: node.Whitespace},
			}},
		},
	)

	out = append(out, program.For{Var: item, Iter: "_iterator", Body: body})
	return append(out, c.leaveAssignment(group)...), nil
}
