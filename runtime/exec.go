package runtime

import (
	"fmt"
	"reflect"

	"github.com/talc-dev/talc/program"
)

// Macro is a macro value a template can invoke through use-macro: anything
// exposing the include entry point. Compiled programs and slot closures
// both satisfy it.
type Macro interface {
	Include(stream *Stream, econtext, rcontext *Context) error
}

// Interp executes a compiled render program. One Interp may serve
// concurrent render calls as long as each call supplies its own stream and
// contexts; the interpreter itself holds only immutable program state.
type Interp struct {
	prog     *program.Program
	markers  map[string]any
	builtins map[string]any
}

// NewInterp prepares a program for execution. Named sentinel symbols are
// materialized once, here.
func NewInterp(p *program.Program) *Interp {
	in := &Interp{
		prog:     p,
		markers:  make(map[string]any, len(p.Markers)),
		builtins: DefaultBuiltins(),
	}
	for _, name := range p.Markers {
		in.markers[name] = NewMarker(name)
	}
	return in
}

// SetBuiltins replaces the host builtin table name reads may fall back to.
// Must match the builtin set the program was compiled against.
func (in *Interp) SetBuiltins(builtins map[string]any) {
	in.builtins = builtins
}

// Render runs the default render function.
func (in *Interp) Render(stream *Stream, econtext, rcontext *Context) error {
	return in.RenderFunc("render", stream, econtext, rcontext)
}

// RenderFunc runs a named function of the program.
func (in *Interp) RenderFunc(name string, stream *Stream, econtext, rcontext *Context) error {
	fn := in.prog.Function(name)
	if fn == nil {
		return fmt.Errorf("no function %q in program", name)
	}
	econtext.SetDefault("translate", TranslateFunc(DefaultTranslate))
	econtext.SetDefault("decode", DecodeFunc(DefaultDecode))
	econtext.SetDefault("convert", ConvertFunc(DefaultConvert))
	return in.execFunc(fn, stream, econtext, rcontext)
}

// Macro wraps a named function as a macro value that can be bound into a
// context and invoked through use-macro.
func (in *Interp) Macro(name string) (Macro, error) {
	fn := in.prog.Function(name)
	if fn == nil {
		return nil, fmt.Errorf("no function %q in program", name)
	}
	return &closure{in: in, fn: fn}, nil
}

// closure binds a function definition (top-level or nested slot override)
// to its interpreter.
type closure struct {
	in *Interp
	fn *program.FuncDef
}

func (c *closure) Include(stream *Stream, econtext, rcontext *Context) error {
	return c.in.execFunc(c.fn, stream, econtext, rcontext)
}

// frame is one function invocation: its output stream, the two contexts,
// and the function-local bindings (temporaries, buffers, closures).
type frame struct {
	in     *Interp
	stream *Stream
	ec     *Context
	rc     *Context
	locals map[string]any
}

func (in *Interp) execFunc(fn *program.FuncDef, stream *Stream, ec, rc *Context) error {
	f := &frame{
		in:     in,
		stream: stream,
		ec:     ec,
		rc:     rc,
		locals: make(map[string]any),
	}
	return f.exec(fn.Body)
}

func (f *frame) exec(stmts []program.Stmt) error {
	for _, s := range stmts {
		if err := f.execStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) execStmt(s program.Stmt) error {
	switch t := s.(type) {
	case program.Comment:
		return nil

	case program.NewBuffer:
		f.locals[t.Name] = NewStream()
		return nil

	case program.Emit:
		v, err := f.eval(t.Value)
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}
		sink := f.stream
		if t.To != program.StreamName {
			buf, ok := f.locals[t.To].(*Stream)
			if !ok {
				return nameError(t.To)
			}
			sink = buf
		}
		sink.Append(asString(v))
		return nil

	case program.Assign:
		v, err := f.eval(t.Value)
		if err != nil {
			return err
		}
		for _, target := range t.Targets {
			if err := f.assign(target, v); err != nil {
				return err
			}
		}
		return nil

	case program.Delete:
		f.ec.Delete(t.Key)
		return nil

	case program.If:
		cond, err := f.eval(t.Cond)
		if err != nil {
			return err
		}
		if Truthy(cond) {
			return f.exec(t.Then)
		}
		return f.exec(t.Else)

	case program.For:
		return f.execFor(t)

	case program.FuncDef:
		fn := t
		f.locals[t.Name] = &closure{in: f.in, fn: &fn}
		return nil

	case program.Guard:
		mark := f.stream.Len()
		err := f.exec(t.Body)
		if err == nil {
			return nil
		}
		if !Recoverable(err) {
			return err
		}
		f.stream.Truncate(mark)
		return f.exec(t.Fallback)

	case program.SetupRepeat:
		src, ok := f.locals[t.Source]
		if !ok {
			return nameError(t.Source)
		}
		it, err := f.ec.Repeat(t.Names, src)
		if err != nil {
			return err
		}
		f.locals[t.Iter] = it
		f.locals[t.Index] = it.Len()
		return nil

	case program.CallMacro:
		fn := f.in.prog.Function(t.Name)
		if fn == nil {
			return fmt.Errorf("no function %q in program", t.Name)
		}
		return f.in.execFunc(fn, f.stream, f.ec.Copy(), f.rc)

	case program.Call:
		v, err := f.eval(t.Callee)
		if err != nil {
			return err
		}
		m, ok := v.(Macro)
		if !ok {
			return typeError("%T is not callable", v)
		}
		rc := f.rc
		if t.EcontextPropagates {
			rc = f.ec
		}
		return m.Include(f.stream, f.ec.Copy(), rc)

	case program.MergeRContext:
		f.ec.Update(f.rc)
		return nil

	default:
		return fmt.Errorf("unknown statement type: %T", s)
	}
}

func (f *frame) execFor(t program.For) error {
	iter, ok := f.locals[t.Iter]
	if !ok {
		return nameError(t.Iter)
	}
	switch it := iter.(type) {
	case *RepeatIter:
		for i := 0; i < it.Len(); i++ {
			f.locals[t.Var] = it.At(i)
			if err := f.exec(t.Body); err != nil {
				return err
			}
		}
	default:
		items, err := Iterate(iter)
		if err != nil {
			return err
		}
		for _, item := range items {
			f.locals[t.Var] = item
			if err := f.exec(t.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *frame) assign(target program.Target, v any) error {
	switch t := target.(type) {
	case program.NameTarget:
		f.locals[t.Name] = v
		return nil
	case program.CtxTarget:
		if t.Ctx == program.CtxR {
			f.rc.Set(t.Key, v)
		} else {
			f.ec.Set(t.Key, v)
		}
		return nil
	case program.TupleTarget:
		items, err := Iterate(v)
		if err != nil {
			return err
		}
		if len(items) != len(t.Elems) {
			return valueError("cannot unpack %d values into %d names", len(items), len(t.Elems))
		}
		for i, elem := range t.Elems {
			if err := f.assign(elem, items[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assignment target: %T", target)
	}
}

func (f *frame) eval(e program.Expr) (any, error) {
	switch t := e.(type) {
	case nil:
		return nil, nil
	case program.Str:
		return t.Value, nil
	case program.Num:
		return t.Value, nil
	case program.Val:
		return t.Value, nil

	case program.Name:
		if v, ok := f.locals[t.ID]; ok {
			return v, nil
		}
		return nil, nameError(t.ID)

	case program.BuiltinRef:
		if v, ok := f.in.builtins[t.Name]; ok {
			return v, nil
		}
		return nil, nameError(t.Name)

	case program.CtxItem:
		return f.ec.Item(t.Key)

	case program.CtxGet:
		if v, err := f.ec.Item(t.Key); err == nil {
			return v, nil
		}
		return f.eval(t.Default)

	case program.CtxPop:
		return f.ec.Pop(t.Key), nil

	case program.Sentinel:
		return Missing, nil

	case program.MarkerRef:
		if m, ok := f.in.markers[t.Name]; ok {
			return m, nil
		}
		return nil, nameError("_marker_" + t.Name)

	case program.UnaryOp:
		x, err := f.eval(t.X)
		if err != nil {
			return nil, err
		}
		if t.Op != "not" {
			return nil, typeError("unknown unary operator %q", t.Op)
		}
		return !Truthy(x), nil

	case program.BinOp:
		return f.evalBinOp(t)

	case program.Path:
		v, err := f.eval(t.Root)
		if err != nil {
			return nil, err
		}
		for _, step := range t.Steps {
			v, err = Traverse(v, step)
			if err != nil {
				return nil, err
			}
		}
		return v, nil

	case program.Concat:
		var out string
		for _, part := range t.Parts {
			v, err := f.eval(part)
			if err != nil {
				return nil, err
			}
			out += asString(v)
		}
		return out, nil

	case program.JoinBuf:
		buf, ok := f.locals[t.Buffer].(*Stream)
		if !ok {
			return nil, nameError(t.Buffer)
		}
		return buf.String(), nil

	case program.CollapseWS:
		v, err := f.eval(t.X)
		if err != nil {
			return nil, err
		}
		return CollapseWhitespace(asString(v)), nil

	case program.MapLit:
		mapping := make(map[string]string, len(t.Keys))
		for i, k := range t.Keys {
			v, err := f.eval(t.Values[i])
			if err != nil {
				return nil, err
			}
			mapping[k] = asString(v)
		}
		return mapping, nil

	case program.TranslateCall:
		return f.evalTranslate(t)

	case program.Convert:
		return f.evalConvert(t)

	case program.Escape:
		return f.evalEscape(t)

	default:
		return nil, fmt.Errorf("unknown expression type: %T", e)
	}
}

func (f *frame) evalBinOp(t program.BinOp) (any, error) {
	x, err := f.eval(t.X)
	if err != nil {
		return nil, err
	}
	y, err := f.eval(t.Y)
	if err != nil {
		return nil, err
	}
	switch t.Op {
	case "is":
		return identical(x, y), nil
	case "isnot":
		return !identical(x, y), nil
	case "==":
		return looseEqual(x, y), nil
	case ">":
		return builtinFloat(x) > builtinFloat(y), nil
	case "-":
		return builtinInt(x) - builtinInt(y), nil
	default:
		return nil, typeError("unknown operator %q", t.Op)
	}
}

func (f *frame) evalTranslate(t program.TranslateCall) (any, error) {
	tv, ok := f.locals["translate"]
	if !ok {
		// Nested closures have no prologue; fall back to the context binding.
		tv = f.ec.Get("translate", TranslateFunc(DefaultTranslate))
	}
	var tr TranslateFunc
	switch fn := tv.(type) {
	case TranslateFunc:
		tr = fn
	case func(string, map[string]string, string, string) string:
		tr = fn
	default:
		return nil, typeError("translate binding %T is not callable", tv)
	}

	mv, err := f.eval(t.Msgid)
	if err != nil {
		return nil, err
	}
	msgid := asString(mv)

	var mapping map[string]string
	if t.Mapping != nil {
		m, err := f.eval(t.Mapping)
		if err != nil {
			return nil, err
		}
		mapping, _ = m.(map[string]string)
	}

	var def string
	if t.Default != nil {
		dv, err := f.eval(t.Default)
		if err != nil {
			return nil, err
		}
		def = asString(dv)
	}

	domain := asString(f.locals["_i18n_domain"])
	return tr(msgid, mapping, def, domain), nil
}

func (f *frame) evalConvert(t program.Convert) (any, error) {
	v, err := f.eval(t.X)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case []byte:
		return f.decode(val), nil
	default:
		return f.convert(val), nil
	}
}

func (f *frame) evalEscape(t program.Escape) (any, error) {
	v, err := f.eval(t.X)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if !val {
			return nil, nil
		}
		return f.convert(val), nil
	case int, int64, float64:
		return f.convert(val), nil
	case string:
		return EscapeText(val, t.Quote), nil
	case []byte:
		return EscapeText(f.decode(val), t.Quote), nil
	default:
		return EscapeText(f.convert(val), t.Quote), nil
	}
}

func (f *frame) decode(data []byte) string {
	switch fn := f.locals["decode"].(type) {
	case DecodeFunc:
		return fn(data)
	case func([]byte) string:
		return fn(data)
	default:
		return DefaultDecode(data)
	}
}

func (f *frame) convert(v any) string {
	switch fn := f.locals["convert"].(type) {
	case ConvertFunc:
		return fn(v)
	case func(any) string:
		return fn(v)
	default:
		return DefaultConvert(v)
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return DefaultConvert(v)
	}
}

// identical compares for object identity; uncomparable values are never
// identical.
func identical(x, y any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return x == y
}

func looseEqual(x, y any) bool {
	if identical(x, y) {
		return true
	}
	if isNumber(x) && isNumber(y) {
		return builtinFloat(x) == builtinFloat(y)
	}
	return reflect.DeepEqual(x, y)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	}
	return false
}
