package runtime

import (
	"strings"
	"testing"

	"github.com/talc-dev/talc/program"
)

func runBody(t *testing.T, body []program.Stmt, ec *Context) *Stream {
	t.Helper()
	p := &program.Program{Functions: []*program.FuncDef{{Name: "render", Body: body}}}
	stream := NewStream()
	if err := NewInterp(p).Render(stream, ec, NewContext()); err != nil {
		t.Fatalf("render error: %v", err)
	}
	return stream
}

func TestGuardRecoversAndTruncates(t *testing.T) {
	body := []program.Stmt{
		program.Emit{To: program.StreamName, Value: program.Str{Value: "before "}},
		program.Guard{
			Body: []program.Stmt{
				program.Emit{To: program.StreamName, Value: program.Str{Value: "partial"}},
				program.Emit{To: program.StreamName, Value: program.CtxItem{Key: "ghost"}},
			},
			Fallback: []program.Stmt{
				program.Emit{To: program.StreamName, Value: program.Str{Value: "fallback"}},
			},
		},
	}
	stream := runBody(t, body, NewContext())
	if stream.String() != "before fallback" {
		t.Errorf("output = %q, want %q", stream.String(), "before fallback")
	}
}

func TestGuardPropagatesUnrecoverable(t *testing.T) {
	p := &program.Program{Functions: []*program.FuncDef{{Name: "render", Body: []program.Stmt{
		program.Guard{
			Body:     []program.Stmt{program.CallMacro{Name: "nonexistent"}},
			Fallback: []program.Stmt{program.Emit{To: program.StreamName, Value: program.Str{Value: "x"}}},
		},
	}}}}
	err := NewInterp(p).Render(NewStream(), NewContext(), NewContext())
	if err == nil || !strings.Contains(err.Error(), "nonexistent") {
		t.Errorf("err = %v, want propagated call failure", err)
	}
}

func TestTupleUnpackMismatch(t *testing.T) {
	p := &program.Program{Functions: []*program.FuncDef{{Name: "render", Body: []program.Stmt{
		program.Assign{
			Targets: []program.Target{program.TupleTarget{Elems: []program.Target{
				program.CtxTarget{Key: "a"},
				program.CtxTarget{Key: "b"},
			}}},
			Value: program.Val{Value: []any{"only"}},
		},
	}}}}
	err := NewInterp(p).Render(NewStream(), NewContext(), NewContext())
	if !Recoverable(err) {
		t.Errorf("err = %v, want recoverable value error", err)
	}
}

func TestBufferEmitAndJoin(t *testing.T) {
	body := []program.Stmt{
		program.NewBuffer{Name: "_buf"},
		program.Emit{To: "_buf", Value: program.Str{Value: "a"}},
		program.Emit{To: "_buf", Value: program.Str{Value: "b"}},
		program.Emit{To: program.StreamName, Value: program.JoinBuf{Buffer: "_buf"}},
	}
	stream := runBody(t, body, NewContext())
	if stream.String() != "ab" {
		t.Errorf("output = %q, want ab", stream.String())
	}
	if stream.Len() != 1 {
		t.Errorf("stream has %d units, want 1 (buffer joined)", stream.Len())
	}
}

func TestNilEmitIsSkipped(t *testing.T) {
	body := []program.Stmt{
		program.Emit{To: program.StreamName, Value: program.Val{Value: nil}},
	}
	stream := runBody(t, body, NewContext())
	if stream.Len() != 0 {
		t.Errorf("stream has %d units, want 0", stream.Len())
	}
}

func TestRenderFuncMissing(t *testing.T) {
	p := &program.Program{}
	err := NewInterp(p).Render(NewStream(), NewContext(), NewContext())
	if err == nil || !strings.Contains(err.Error(), "render") {
		t.Errorf("err = %v, want missing-function error", err)
	}
}

func TestMarkerMaterialization(t *testing.T) {
	p := &program.Program{
		Markers: []string{"default"},
		Functions: []*program.FuncDef{{Name: "render", Body: []program.Stmt{
			program.Assign{
				Targets: []program.Target{program.CtxTarget{Key: "m"}},
				Value:   program.MarkerRef{Name: "default"},
			},
			program.If{
				Cond: program.BinOp{Op: "is", X: program.CtxItem{Key: "m"}, Y: program.MarkerRef{Name: "default"}},
				Then: []program.Stmt{program.Emit{To: program.StreamName, Value: program.Str{Value: "same"}}},
			},
		}}},
	}
	stream := NewStream()
	if err := NewInterp(p).Render(stream, NewContext(), NewContext()); err != nil {
		t.Fatalf("render error: %v", err)
	}
	if stream.String() != "same" {
		t.Errorf("output = %q, want same", stream.String())
	}
}

func TestEscapeFalseBecomesNil(t *testing.T) {
	body := []program.Stmt{
		program.Emit{To: program.StreamName, Value: program.Escape{X: program.Val{Value: false}}},
	}
	stream := runBody(t, body, NewContext())
	if stream.Len() != 0 {
		t.Errorf("false escaped to %q, want nothing", stream.String())
	}
}
