package compiler

import (
	"github.com/talc-dev/talc/nodes"
	"github.com/talc-dev/talc/program"
)

// visitUseInternalMacro calls a sibling function of the same program with a
// copy of the dynamic context, then folds propagated assignments back in.
func (c *Compiler) visitUseInternalMacro(node *nodes.UseInternalMacro) ([]program.Stmt, error) {
	return []program.Stmt{
		program.CallMacro{Name: macroFunctionName(node.Name)},
		program.MergeRContext{},
	}, nil
}

// visitUseMacro calls an external macro value. Each slot override becomes a
// nested render function bound into the context under the slot's key; the
// macro pops the key and calls the override, or falls back to its own slot
// default.
func (c *Compiler) visitUseMacro(node *nodes.UseMacro) ([]program.Stmt, error) {
	var out []program.Stmt
	for _, slot := range node.Slots {
		name := slotKey(slot.Name)
		body, err := c.visit(slot.Node)
		if err != nil {
			return nil, err
		}
		out = append(out,
			program.FuncDef{Name: name, Body: body},
			program.Assign{
				Targets: []program.Target{program.CtxTarget{Ctx: program.CtxE, Key: name}},
				Value:   program.Name{ID: name},
			},
		)
	}

	stmts, err := c.engine.compile(node.Expression, program.NameTarget{Name: "_macro"})
	if err != nil {
		return nil, err
	}
	out = append(out, stmts...)
	return append(out,
		program.Call{Callee: program.Name{ID: "_macro"}},
		program.MergeRContext{},
	), nil
}

// visitDefineSlot compiles a fillable slot. A caller-provided override is
// popped from the context and invoked with the dynamic context propagating,
// so its assignments reach the surrounding scope; without one the default
// body renders inline.
func (c *Compiler) visitDefineSlot(node *nodes.DefineSlot) ([]program.Stmt, error) {
	body, err := c.visit(node.Node)
	if err != nil {
		return nil, err
	}
	slot := c.fresh("slot")
	return []program.Stmt{
		program.Assign{
			Targets: []program.Target{program.NameTarget{Name: slot}},
			Value:   program.CtxPop{Key: slotKey(node.Name)},
		},
		program.If{
			Cond: program.BinOp{
				Op: "isnot",
				X:  program.Name{ID: slot},
				Y:  program.Sentinel{},
			},
			Then: []program.Stmt{program.Call{
				Callee:             program.Name{ID: slot},
				EcontextPropagates: true,
			}},
			Else: body,
		},
	}, nil
}

func slotKey(name string) string {
	return "_slot_" + mangle(name)
}
