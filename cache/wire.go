// Package cache persists compiled render programs: a CBOR wire format and
// a sqlite-backed store keyed by template identity.
package cache

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/talc-dev/talc/program"
)

// wireVersion guards against loading programs written by an incompatible
// codec.
const wireVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Statement, expression and target kinds on the wire. The in-memory program
// uses interface variants; the wire format is a tagged union.
const (
	kComment   = "comment"
	kEmit      = "emit"
	kNewBuffer = "buffer"
	kAssign    = "assign"
	kDelete    = "delete"
	kIf        = "if"
	kFor       = "for"
	kFuncDef   = "func"
	kGuard     = "guard"
	kSetup     = "repeat"
	kCallMacro = "callmacro"
	kCall      = "call"
	kMerge     = "merge"

	kStr        = "str"
	kNum        = "num"
	kVal        = "val"
	kName       = "name"
	kBuiltin    = "builtin"
	kCtxItem    = "item"
	kCtxGet     = "get"
	kCtxPop     = "pop"
	kSentinel   = "sentinel"
	kMarker     = "marker"
	kUnary      = "unary"
	kBin        = "bin"
	kPath       = "path"
	kConcat     = "concat"
	kJoinBuf    = "join"
	kCollapse   = "collapse"
	kMapLit     = "map"
	kTranslate  = "translate"
	kConvert    = "convert"
	kEscape     = "escape"

	kTgtName  = "name"
	kTgtCtx   = "ctx"
	kTgtTuple = "tuple"
)

type wireProgram struct {
	Version   int        `cbor:"v"`
	Markers   []string   `cbor:"m,omitempty"`
	Functions []wireFunc `cbor:"f"`
}

type wireFunc struct {
	Name string     `cbor:"n"`
	Body []wireStmt `cbor:"b,omitempty"`
}

type wireStmt struct {
	Kind string `cbor:"k"`

	Text     string       `cbor:"t,omitempty"`
	To       string       `cbor:"o,omitempty"`
	Name     string       `cbor:"n,omitempty"`
	Key      string       `cbor:"y,omitempty"`
	Targets  []wireTarget `cbor:"g,omitempty"`
	Value    *wireExpr    `cbor:"v,omitempty"`
	Cond     *wireExpr    `cbor:"c,omitempty"`
	Then     []wireStmt   `cbor:"h,omitempty"`
	Else     []wireStmt   `cbor:"e,omitempty"`
	Var      string       `cbor:"r,omitempty"`
	Iter     string       `cbor:"i,omitempty"`
	Body     []wireStmt   `cbor:"b,omitempty"`
	Fallback []wireStmt   `cbor:"f,omitempty"`
	Names    []string     `cbor:"s,omitempty"`
	Source   string       `cbor:"u,omitempty"`
	Index    string       `cbor:"x,omitempty"`
	Callee   *wireExpr    `cbor:"l,omitempty"`
	ECProp   bool         `cbor:"p,omitempty"`
}

type wireExpr struct {
	Kind string `cbor:"k"`

	Str     string     `cbor:"s,omitempty"`
	Num     int        `cbor:"n,omitempty"`
	Val     any        `cbor:"v,omitempty"`
	Name    string     `cbor:"m,omitempty"`
	Key     string     `cbor:"y,omitempty"`
	Default *wireExpr  `cbor:"d,omitempty"`
	Op      string     `cbor:"o,omitempty"`
	X       *wireExpr  `cbor:"x,omitempty"`
	Y       *wireExpr  `cbor:"z,omitempty"`
	Steps   []string   `cbor:"t,omitempty"`
	Parts   []wireExpr `cbor:"p,omitempty"`
	Buffer  string     `cbor:"b,omitempty"`
	Keys    []string   `cbor:"e,omitempty"`
	Values  []wireExpr `cbor:"w,omitempty"`
	Msgid   *wireExpr  `cbor:"i,omitempty"`
	Mapping *wireExpr  `cbor:"a,omitempty"`
	Quote   string     `cbor:"q,omitempty"`
}

type wireTarget struct {
	Kind  string       `cbor:"k"`
	Name  string       `cbor:"n,omitempty"`
	Ctx   uint8        `cbor:"c,omitempty"`
	Key   string       `cbor:"y,omitempty"`
	Elems []wireTarget `cbor:"e,omitempty"`
}

// MarshalProgram serializes a program to canonical CBOR bytes.
func MarshalProgram(p *program.Program) ([]byte, error) {
	w := wireProgram{Version: wireVersion, Markers: p.Markers}
	for _, fn := range p.Functions {
		body, err := stmtsToWire(fn.Body)
		if err != nil {
			return nil, err
		}
		w.Functions = append(w.Functions, wireFunc{Name: fn.Name, Body: body})
	}
	return cborEncMode.Marshal(&w)
}

// UnmarshalProgram deserializes a program from CBOR bytes.
func UnmarshalProgram(data []byte) (*program.Program, error) {
	var w wireProgram
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("cache: unmarshal program: %w", err)
	}
	if w.Version != wireVersion {
		return nil, fmt.Errorf("cache: wire version %d, want %d", w.Version, wireVersion)
	}
	p := &program.Program{Markers: w.Markers}
	for _, fn := range w.Functions {
		body, err := stmtsFromWire(fn.Body)
		if err != nil {
			return nil, err
		}
		p.Functions = append(p.Functions, &program.FuncDef{Name: fn.Name, Body: body})
	}
	return p, nil
}

func stmtsToWire(stmts []program.Stmt) ([]wireStmt, error) {
	out := make([]wireStmt, 0, len(stmts))
	for _, s := range stmts {
		w, err := stmtToWire(s)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func stmtToWire(s program.Stmt) (wireStmt, error) {
	switch t := s.(type) {
	case program.Comment:
		return wireStmt{Kind: kComment, Text: t.Text}, nil
	case program.Emit:
		v, err := exprToWire(t.Value)
		if err != nil {
			return wireStmt{}, err
		}
		return wireStmt{Kind: kEmit, To: t.To, Value: v}, nil
	case program.NewBuffer:
		return wireStmt{Kind: kNewBuffer, Name: t.Name}, nil
	case program.Assign:
		v, err := exprToWire(t.Value)
		if err != nil {
			return wireStmt{}, err
		}
		targets, err := targetsToWire(t.Targets)
		if err != nil {
			return wireStmt{}, err
		}
		return wireStmt{Kind: kAssign, Targets: targets, Value: v}, nil
	case program.Delete:
		return wireStmt{Kind: kDelete, Key: t.Key}, nil
	case program.If:
		cond, err := exprToWire(t.Cond)
		if err != nil {
			return wireStmt{}, err
		}
		then, err := stmtsToWire(t.Then)
		if err != nil {
			return wireStmt{}, err
		}
		els, err := stmtsToWire(t.Else)
		if err != nil {
			return wireStmt{}, err
		}
		return wireStmt{Kind: kIf, Cond: cond, Then: then, Else: els}, nil
	case program.For:
		body, err := stmtsToWire(t.Body)
		if err != nil {
			return wireStmt{}, err
		}
		return wireStmt{Kind: kFor, Var: t.Var, Iter: t.Iter, Body: body}, nil
	case program.FuncDef:
		body, err := stmtsToWire(t.Body)
		if err != nil {
			return wireStmt{}, err
		}
		return wireStmt{Kind: kFuncDef, Name: t.Name, Body: body}, nil
	case program.Guard:
		body, err := stmtsToWire(t.Body)
		if err != nil {
			return wireStmt{}, err
		}
		fallback, err := stmtsToWire(t.Fallback)
		if err != nil {
			return wireStmt{}, err
		}
		return wireStmt{Kind: kGuard, Body: body, Fallback: fallback}, nil
	case program.SetupRepeat:
		return wireStmt{Kind: kSetup, Names: t.Names, Source: t.Source, Iter: t.Iter, Index: t.Index}, nil
	case program.CallMacro:
		return wireStmt{Kind: kCallMacro, Name: t.Name}, nil
	case program.Call:
		callee, err := exprToWire(t.Callee)
		if err != nil {
			return wireStmt{}, err
		}
		return wireStmt{Kind: kCall, Callee: callee, ECProp: t.EcontextPropagates}, nil
	case program.MergeRContext:
		return wireStmt{Kind: kMerge}, nil
	default:
		return wireStmt{}, fmt.Errorf("cache: cannot encode statement %T", s)
	}
}

func stmtsFromWire(stmts []wireStmt) ([]program.Stmt, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	out := make([]program.Stmt, 0, len(stmts))
	for _, w := range stmts {
		s, err := stmtFromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func stmtFromWire(w wireStmt) (program.Stmt, error) {
	switch w.Kind {
	case kComment:
		return program.Comment{Text: w.Text}, nil
	case kEmit:
		v, err := exprFromWire(w.Value)
		if err != nil {
			return nil, err
		}
		return program.Emit{To: w.To, Value: v}, nil
	case kNewBuffer:
		return program.NewBuffer{Name: w.Name}, nil
	case kAssign:
		v, err := exprFromWire(w.Value)
		if err != nil {
			return nil, err
		}
		targets, err := targetsFromWire(w.Targets)
		if err != nil {
			return nil, err
		}
		return program.Assign{Targets: targets, Value: v}, nil
	case kDelete:
		return program.Delete{Key: w.Key}, nil
	case kIf:
		cond, err := exprFromWire(w.Cond)
		if err != nil {
			return nil, err
		}
		then, err := stmtsFromWire(w.Then)
		if err != nil {
			return nil, err
		}
		els, err := stmtsFromWire(w.Else)
		if err != nil {
			return nil, err
		}
		return program.If{Cond: cond, Then: then, Else: els}, nil
	case kFor:
		body, err := stmtsFromWire(w.Body)
		if err != nil {
			return nil, err
		}
		return program.For{Var: w.Var, Iter: w.Iter, Body: body}, nil
	case kFuncDef:
		body, err := stmtsFromWire(w.Body)
		if err != nil {
			return nil, err
		}
		return program.FuncDef{Name: w.Name, Body: body}, nil
	case kGuard:
		body, err := stmtsFromWire(w.Body)
		if err != nil {
			return nil, err
		}
		fallback, err := stmtsFromWire(w.Fallback)
		if err != nil {
			return nil, err
		}
		return program.Guard{Body: body, Fallback: fallback}, nil
	case kSetup:
		return program.SetupRepeat{Names: w.Names, Source: w.Source, Iter: w.Iter, Index: w.Index}, nil
	case kCallMacro:
		return program.CallMacro{Name: w.Name}, nil
	case kCall:
		callee, err := exprFromWire(w.Callee)
		if err != nil {
			return nil, err
		}
		return program.Call{Callee: callee, EcontextPropagates: w.ECProp}, nil
	case kMerge:
		return program.MergeRContext{}, nil
	default:
		return nil, fmt.Errorf("cache: unknown statement kind %q", w.Kind)
	}
}

func exprToWire(e program.Expr) (*wireExpr, error) {
	if e == nil {
		return nil, nil
	}
	switch t := e.(type) {
	case program.Str:
		return &wireExpr{Kind: kStr, Str: t.Value}, nil
	case program.Num:
		return &wireExpr{Kind: kNum, Num: t.Value}, nil
	case program.Val:
		return &wireExpr{Kind: kVal, Val: t.Value}, nil
	case program.Name:
		return &wireExpr{Kind: kName, Name: t.ID}, nil
	case program.BuiltinRef:
		return &wireExpr{Kind: kBuiltin, Name: t.Name}, nil
	case program.CtxItem:
		return &wireExpr{Kind: kCtxItem, Key: t.Key}, nil
	case program.CtxGet:
		def, err := exprToWire(t.Default)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kCtxGet, Key: t.Key, Default: def}, nil
	case program.CtxPop:
		return &wireExpr{Kind: kCtxPop, Key: t.Key}, nil
	case program.Sentinel:
		return &wireExpr{Kind: kSentinel}, nil
	case program.MarkerRef:
		return &wireExpr{Kind: kMarker, Name: t.Name}, nil
	case program.UnaryOp:
		x, err := exprToWire(t.X)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kUnary, Op: t.Op, X: x}, nil
	case program.BinOp:
		x, err := exprToWire(t.X)
		if err != nil {
			return nil, err
		}
		y, err := exprToWire(t.Y)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kBin, Op: t.Op, X: x, Y: y}, nil
	case program.Path:
		root, err := exprToWire(t.Root)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kPath, X: root, Steps: t.Steps}, nil
	case program.Concat:
		parts, err := exprsToWire(t.Parts)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kConcat, Parts: parts}, nil
	case program.JoinBuf:
		return &wireExpr{Kind: kJoinBuf, Buffer: t.Buffer}, nil
	case program.CollapseWS:
		x, err := exprToWire(t.X)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kCollapse, X: x}, nil
	case program.MapLit:
		values, err := exprsToWire(t.Values)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kMapLit, Keys: t.Keys, Values: values}, nil
	case program.TranslateCall:
		msgid, err := exprToWire(t.Msgid)
		if err != nil {
			return nil, err
		}
		mapping, err := exprToWire(t.Mapping)
		if err != nil {
			return nil, err
		}
		def, err := exprToWire(t.Default)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kTranslate, Msgid: msgid, Mapping: mapping, Default: def}, nil
	case program.Convert:
		x, err := exprToWire(t.X)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kConvert, X: x}, nil
	case program.Escape:
		x, err := exprToWire(t.X)
		if err != nil {
			return nil, err
		}
		return &wireExpr{Kind: kEscape, X: x, Quote: t.Quote}, nil
	default:
		return nil, fmt.Errorf("cache: cannot encode expression %T", e)
	}
}

func exprsToWire(exprs []program.Expr) ([]wireExpr, error) {
	out := make([]wireExpr, 0, len(exprs))
	for _, e := range exprs {
		w, err := exprToWire(e)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

func exprFromWire(w *wireExpr) (program.Expr, error) {
	if w == nil {
		return nil, nil
	}
	switch w.Kind {
	case kStr:
		return program.Str{Value: w.Str}, nil
	case kNum:
		return program.Num{Value: w.Num}, nil
	case kVal:
		return program.Val{Value: w.Val}, nil
	case kName:
		return program.Name{ID: w.Name}, nil
	case kBuiltin:
		return program.BuiltinRef{Name: w.Name}, nil
	case kCtxItem:
		return program.CtxItem{Key: w.Key}, nil
	case kCtxGet:
		def, err := exprFromWire(w.Default)
		if err != nil {
			return nil, err
		}
		return program.CtxGet{Key: w.Key, Default: def}, nil
	case kCtxPop:
		return program.CtxPop{Key: w.Key}, nil
	case kSentinel:
		return program.Sentinel{}, nil
	case kMarker:
		return program.MarkerRef{Name: w.Name}, nil
	case kUnary:
		x, err := exprFromWire(w.X)
		if err != nil {
			return nil, err
		}
		return program.UnaryOp{Op: w.Op, X: x}, nil
	case kBin:
		x, err := exprFromWire(w.X)
		if err != nil {
			return nil, err
		}
		y, err := exprFromWire(w.Y)
		if err != nil {
			return nil, err
		}
		return program.BinOp{Op: w.Op, X: x, Y: y}, nil
	case kPath:
		root, err := exprFromWire(w.X)
		if err != nil {
			return nil, err
		}
		return program.Path{Root: root, Steps: w.Steps}, nil
	case kConcat:
		parts, err := exprsFromWire(w.Parts)
		if err != nil {
			return nil, err
		}
		return program.Concat{Parts: parts}, nil
	case kJoinBuf:
		return program.JoinBuf{Buffer: w.Buffer}, nil
	case kCollapse:
		x, err := exprFromWire(w.X)
		if err != nil {
			return nil, err
		}
		return program.CollapseWS{X: x}, nil
	case kMapLit:
		values, err := exprsFromWire(w.Values)
		if err != nil {
			return nil, err
		}
		return program.MapLit{Keys: w.Keys, Values: values}, nil
	case kTranslate:
		msgid, err := exprFromWire(w.Msgid)
		if err != nil {
			return nil, err
		}
		mapping, err := exprFromWire(w.Mapping)
		if err != nil {
			return nil, err
		}
		def, err := exprFromWire(w.Default)
		if err != nil {
			return nil, err
		}
		return program.TranslateCall{Msgid: msgid, Mapping: mapping, Default: def}, nil
	case kConvert:
		x, err := exprFromWire(w.X)
		if err != nil {
			return nil, err
		}
		return program.Convert{X: x}, nil
	case kEscape:
		x, err := exprFromWire(w.X)
		if err != nil {
			return nil, err
		}
		return program.Escape{X: x, Quote: w.Quote}, nil
	default:
		return nil, fmt.Errorf("cache: unknown expression kind %q", w.Kind)
	}
}

func exprsFromWire(exprs []wireExpr) ([]program.Expr, error) {
	out := make([]program.Expr, 0, len(exprs))
	for i := range exprs {
		e, err := exprFromWire(&exprs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func targetsToWire(targets []program.Target) ([]wireTarget, error) {
	out := make([]wireTarget, 0, len(targets))
	for _, t := range targets {
		w, err := targetToWire(t)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func targetToWire(t program.Target) (wireTarget, error) {
	switch tt := t.(type) {
	case program.NameTarget:
		return wireTarget{Kind: kTgtName, Name: tt.Name}, nil
	case program.CtxTarget:
		return wireTarget{Kind: kTgtCtx, Ctx: uint8(tt.Ctx), Key: tt.Key}, nil
	case program.TupleTarget:
		elems, err := targetsToWire(tt.Elems)
		if err != nil {
			return wireTarget{}, err
		}
		return wireTarget{Kind: kTgtTuple, Elems: elems}, nil
	default:
		return wireTarget{}, fmt.Errorf("cache: cannot encode target %T", t)
	}
}

func targetsFromWire(targets []wireTarget) ([]program.Target, error) {
	out := make([]program.Target, 0, len(targets))
	for _, w := range targets {
		t, err := targetFromWire(w)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func targetFromWire(w wireTarget) (program.Target, error) {
	switch w.Kind {
	case kTgtName:
		return program.NameTarget{Name: w.Name}, nil
	case kTgtCtx:
		return program.CtxTarget{Ctx: program.CtxKind(w.Ctx), Key: w.Key}, nil
	case kTgtTuple:
		elems, err := targetsFromWire(w.Elems)
		if err != nil {
			return nil, err
		}
		return program.TupleTarget{Elems: elems}, nil
	default:
		return nil, fmt.Errorf("cache: unknown target kind %q", w.Kind)
	}
}
