package program

import (
	"fmt"
	"sort"
	"strings"
)

// Listing renders a program as a readable statement listing, one function
// per section. Intended for debugging and golden tests, not execution.
func (p *Program) Listing() string {
	var b strings.Builder
	markers := append([]string(nil), p.Markers...)
	sort.Strings(markers)
	for _, m := range markers {
		fmt.Fprintf(&b, "marker %s\n", m)
	}
	for _, f := range p.Functions {
		fmt.Fprintf(&b, "func %s(stream, econtext, rcontext):\n", f.Name)
		writeStmts(&b, f.Body, 1)
	}
	return b.String()
}

func writeStmts(b *strings.Builder, stmts []Stmt, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range stmts {
		switch t := s.(type) {
		case Comment:
			fmt.Fprintf(b, "%s# %s\n", indent, t.Text)
		case Emit:
			fmt.Fprintf(b, "%semit %s <- %s\n", indent, t.To, exprString(t.Value))
		case NewBuffer:
			fmt.Fprintf(b, "%sbuffer %s\n", indent, t.Name)
		case Assign:
			names := make([]string, len(t.Targets))
			for i, tgt := range t.Targets {
				names[i] = targetString(tgt)
			}
			fmt.Fprintf(b, "%s%s = %s\n", indent, strings.Join(names, ", "), exprString(t.Value))
		case Delete:
			fmt.Fprintf(b, "%sdel econtext[%q]\n", indent, t.Key)
		case If:
			fmt.Fprintf(b, "%sif %s:\n", indent, exprString(t.Cond))
			writeStmts(b, t.Then, depth+1)
			if len(t.Else) > 0 {
				fmt.Fprintf(b, "%selse:\n", indent)
				writeStmts(b, t.Else, depth+1)
			}
		case For:
			fmt.Fprintf(b, "%sfor %s in %s:\n", indent, t.Var, t.Iter)
			writeStmts(b, t.Body, depth+1)
		case FuncDef:
			fmt.Fprintf(b, "%sfunc %s(stream, econtext, rcontext):\n", indent, t.Name)
			writeStmts(b, t.Body, depth+1)
		case Guard:
			fmt.Fprintf(b, "%stry:\n", indent)
			writeStmts(b, t.Body, depth+1)
			fmt.Fprintf(b, "%srecover:\n", indent)
			writeStmts(b, t.Fallback, depth+1)
		case SetupRepeat:
			fmt.Fprintf(b, "%s%s, %s = repeat(%s, %s)\n",
				indent, t.Iter, t.Index, strings.Join(t.Names, ", "), t.Source)
		case CallMacro:
			fmt.Fprintf(b, "%scall %s(stream, econtext.copy(), rcontext)\n", indent, t.Name)
		case Call:
			rctx := "rcontext"
			if t.EcontextPropagates {
				rctx = "econtext"
			}
			fmt.Fprintf(b, "%scall %s(stream, econtext.copy(), %s)\n",
				indent, exprString(t.Callee), rctx)
		case MergeRContext:
			fmt.Fprintf(b, "%secontext.update(rcontext)\n", indent)
		default:
			fmt.Fprintf(b, "%s?%T\n", indent, s)
		}
	}
}

func targetString(t Target) string {
	switch tt := t.(type) {
	case NameTarget:
		return tt.Name
	case CtxTarget:
		return fmt.Sprintf("%s[%q]", tt.Ctx, tt.Key)
	case TupleTarget:
		parts := make([]string, len(tt.Elems))
		for i, e := range tt.Elems {
			parts[i] = targetString(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("?%T", t)
	}
}

func exprString(e Expr) string {
	switch t := e.(type) {
	case nil:
		return "nil"
	case Str:
		return fmt.Sprintf("%q", t.Value)
	case Num:
		return fmt.Sprintf("%d", t.Value)
	case Val:
		if t.Value == nil {
			return "nil"
		}
		return fmt.Sprintf("%v", t.Value)
	case Name:
		return t.ID
	case BuiltinRef:
		return "builtin:" + t.Name
	case CtxItem:
		return fmt.Sprintf("econtext[%q]", t.Key)
	case CtxGet:
		return fmt.Sprintf("econtext.get(%q, %s)", t.Key, exprString(t.Default))
	case CtxPop:
		return fmt.Sprintf("econtext.pop(%q)", t.Key)
	case Sentinel:
		return "_marker"
	case MarkerRef:
		return "_marker_" + t.Name
	case UnaryOp:
		return fmt.Sprintf("(%s %s)", t.Op, exprString(t.X))
	case BinOp:
		return fmt.Sprintf("(%s %s %s)", exprString(t.X), t.Op, exprString(t.Y))
	case Path:
		return exprString(t.Root) + "." + strings.Join(t.Steps, ".")
	case Concat:
		parts := make([]string, len(t.Parts))
		for i, p := range t.Parts {
			parts[i] = exprString(p)
		}
		return "concat(" + strings.Join(parts, ", ") + ")"
	case JoinBuf:
		return fmt.Sprintf("join(%s)", t.Buffer)
	case CollapseWS:
		return fmt.Sprintf("collapse(%s)", exprString(t.X))
	case MapLit:
		parts := make([]string, len(t.Keys))
		for i, k := range t.Keys {
			parts[i] = fmt.Sprintf("%q: %s", k, exprString(t.Values[i]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case TranslateCall:
		return fmt.Sprintf("translate(%s, mapping=%s, default=%s, domain=_i18n_domain)",
			exprString(t.Msgid), exprString(t.Mapping), exprString(t.Default))
	case Convert:
		return fmt.Sprintf("convert(%s)", exprString(t.X))
	case Escape:
		return fmt.Sprintf("escape(%s, quote=%q)", exprString(t.X), t.Quote)
	default:
		return fmt.Sprintf("?%T", e)
	}
}
