package program

import (
	"strings"
	"testing"
)

func TestListing(t *testing.T) {
	p := &Program{
		Markers: []string{"default"},
		Functions: []*FuncDef{{
			Name: "render",
			Body: []Stmt{
				Comment{Text: " greeting -> _content"},
				Assign{
					Targets: []Target{NameTarget{Name: "_content"}},
					Value:   CtxItem{Key: "greeting"},
				},
				If{
					Cond: BinOp{Op: "isnot", X: Name{ID: "_content"}, Y: Val{Value: nil}},
					Then: []Stmt{Emit{To: StreamName, Value: Name{ID: "_content"}}},
				},
			},
		}},
	}
	listing := p.Listing()

	for _, want := range []string{
		"marker default",
		"func render(stream, econtext, rcontext):",
		"# greeting -> _content",
		`_content = econtext["greeting"]`,
		"if (_content isnot nil):",
		"emit stream <- _content",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}

func TestFunctionLookup(t *testing.T) {
	p := &Program{Functions: []*FuncDef{{Name: "render"}, {Name: "render_header"}}}
	if p.Function("render_header") == nil {
		t.Error("render_header not found")
	}
	if p.Function("ghost") != nil {
		t.Error("lookup of missing function returned non-nil")
	}
}
