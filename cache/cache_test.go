package cache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/talc-dev/talc/program"
)

func sampleProgram() *program.Program {
	return &program.Program{
		Markers: []string{"default"},
		Functions: []*program.FuncDef{{
			Name: "render",
			Body: []program.Stmt{
				program.Comment{Text: " header"},
				program.Assign{
					Targets: []program.Target{program.NameTarget{Name: "_content"}},
					Value:   program.CtxGet{Key: "len", Default: program.BuiltinRef{Name: "len"}},
				},
				program.If{
					Cond: program.BinOp{Op: "isnot", X: program.Name{ID: "_content"}, Y: program.Val{Value: nil}},
					Then: []program.Stmt{program.Emit{
						To:    program.StreamName,
						Value: program.Escape{X: program.Name{ID: "_content"}, Quote: `"`},
					}},
				},
				program.NewBuffer{Name: "_stream_1"},
				program.For{Var: "_item", Iter: "_iterator", Body: []program.Stmt{
					program.Emit{To: "_stream_1", Value: program.Name{ID: "_item"}},
				}},
				program.Emit{To: program.StreamName, Value: program.TranslateCall{
					Msgid: program.CollapseWS{X: program.JoinBuf{Buffer: "_stream_1"}},
					Mapping: program.MapLit{
						Keys:   []string{"who"},
						Values: []program.Expr{program.Str{Value: "x"}},
					},
					Default: program.Name{ID: "_msgid_1"},
				}},
				program.Guard{
					Body:     []program.Stmt{program.Delete{Key: "tmp"}},
					Fallback: []program.Stmt{program.MergeRContext{}},
				},
				program.SetupRepeat{Names: []string{"a", "b"}, Source: "_iterator", Iter: "_iterator", Index: "_index_1"},
				program.Assign{
					Targets: []program.Target{program.TupleTarget{Elems: []program.Target{
						program.CtxTarget{Ctx: program.CtxE, Key: "a"},
						program.CtxTarget{Ctx: program.CtxR, Key: "b"},
					}}},
					Value: program.CtxPop{Key: "pair"},
				},
				program.FuncDef{Name: "_slot_title", Body: []program.Stmt{
					program.Call{Callee: program.Name{ID: "_slot"}, EcontextPropagates: true},
				}},
				program.CallMacro{Name: "render_header"},
				program.If{
					Cond: program.UnaryOp{Op: "not", X: program.BinOp{
						Op: ">",
						X:  program.BinOp{Op: "-", X: program.Num{Value: 2}, Y: program.Num{Value: 1}},
						Y:  program.Num{Value: 0},
					}},
					Then: []program.Stmt{program.Emit{
						To: program.StreamName,
						Value: program.Concat{Parts: []program.Expr{
							program.Str{Value: "p"},
							program.Convert{X: program.Path{Root: program.CtxItem{Key: "user"}, Steps: []string{"name"}}},
							program.MarkerRef{Name: "default"},
							program.Sentinel{},
						}},
					}},
				},
			},
		}},
	}
}

// The wire format must carry every statement, expression and target variant
// without altering the program.
func TestWireRoundTrip(t *testing.T) {
	p := sampleProgram()
	data, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := UnmarshalProgram(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got, want := back.Listing(), p.Listing(); got != want {
		t.Errorf("listing changed after round trip:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	a, err := MarshalProgram(sampleProgram())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := MarshalProgram(sampleProgram())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Error("canonical encodings differ")
	}
}

func TestUnmarshalRejectsBadVersion(t *testing.T) {
	data, err := cborEncMode.Marshal(&wireProgram{Version: 99})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := UnmarshalProgram(data); err == nil {
		t.Error("expected version error")
	}
}

func TestStorePutGet(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "programs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	p := sampleProgram()
	if err := s.Put("tmpl:abc", p); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get("tmpl:abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Listing() != p.Listing() {
		t.Error("stored program differs from original")
	}
}

func TestStoreGetMissing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "programs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreReplaceAndDelete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "programs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	small := &program.Program{Functions: []*program.FuncDef{{Name: "render"}}}
	if err := s.Put("k", sampleProgram()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put("k", small); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.Get("k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Listing() != small.Listing() {
		t.Error("replace did not overwrite")
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}
