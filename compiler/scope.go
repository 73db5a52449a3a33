package compiler

import (
	"fmt"

	"github.com/talc-dev/talc/program"
)

// backupGroup ties the names of one assignment construct to the id used in
// their backup locals, so enter and leave emit matching names.
type backupGroup struct {
	names []string
	id    int
}

func (c *Compiler) pushScope() {
	top := c.scopes[len(c.scopes)-1]
	next := make(map[string]bool, len(top))
	for name := range top {
		next[name] = true
	}
	c.scopes = append(c.scopes, next)
}

func (c *Compiler) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// enterAssignment saves the prior context bindings of the group's names.
// Absent names are recorded as the sentinel so leaveAssignment can tell a
// shadowed binding from a fresh one.
func (c *Compiler) enterAssignment(group backupGroup) ([]program.Stmt, error) {
	var out []program.Stmt
	for _, name := range group.names {
		if disallowedNames[name] {
			return nil, fmt.Errorf("assignment name is reserved: %s", name)
		}
		c.scopes[len(c.scopes)-1][name] = true
		out = append(out, program.Assign{
			Targets: []program.Target{program.NameTarget{Name: backupName(name, group.id)}},
			Value:   program.CtxGet{Key: name, Default: program.Sentinel{}},
		})
	}
	return out, nil
}

// leaveAssignment restores every name of the group: names that were absent
// on entry are deleted, shadowed ones get their old value back.
func (c *Compiler) leaveAssignment(group backupGroup) []program.Stmt {
	var out []program.Stmt
	for _, name := range group.names {
		backup := backupName(name, group.id)
		out = append(out, program.If{
			Cond: program.BinOp{
				Op: "is",
				X:  program.Name{ID: backup},
				Y:  program.Sentinel{},
			},
			Then: []program.Stmt{program.Delete{Key: name}},
			Else: []program.Stmt{program.Assign{
				Targets: []program.Target{program.CtxTarget{Ctx: program.CtxE, Key: name}},
				Value:   program.Name{ID: backup},
			}},
		})
	}
	return out
}

func backupName(name string, id int) string {
	return fmt.Sprintf("_backup_%s_%d", mangle(name), id)
}
