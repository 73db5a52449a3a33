package runtime

import (
	"errors"
	"testing"
)

func TestEscapeText(t *testing.T) {
	tests := []struct {
		in    string
		quote string
		want  string
	}{
		{"plain", "", "plain"},
		{"a < b > c", "", "a &lt; b &gt; c"},
		{"Tom & Jerry", "", "Tom &amp; Jerry"},
		{"&amp; stays; & goes", "", "&amp; stays; &amp; goes"},
		{"&#169; kept; & not", "", "&#169; kept; &amp; not"},
		{`say "hi"`, `"`, "say &#34;hi&#34;"},
		{`say "hi"`, "", `say "hi"`},
	}
	for _, tt := range tests {
		if got := EscapeText(tt.in, tt.quote); got != tt.want {
			t.Errorf("EscapeText(%q, %q) = %q, want %q", tt.in, tt.quote, got, tt.want)
		}
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Hello   World  ", "Hello World"},
		{"one\n\ttwo", "one two"},
		{"a  b", "a b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CollapseWhitespace(tt.in); got != tt.want {
			t.Errorf("CollapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, 1, -1, "x", []any{1}, map[string]any{"k": 1}} {
		if !Truthy(v) {
			t.Errorf("Truthy(%#v) = false, want true", v)
		}
	}
	for _, v := range []any{nil, false, 0, 0.0, "", []any{}, map[string]any{}, Missing} {
		if Truthy(v) {
			t.Errorf("Truthy(%#v) = true, want false", v)
		}
	}
}

func TestDefaultTranslate(t *testing.T) {
	got := DefaultTranslate("id", map[string]string{"who": "eva"}, "Hello ${who}!", "")
	if got != "Hello eva!" {
		t.Errorf("got %q, want Hello eva!", got)
	}
	if got := DefaultTranslate("id", nil, "", ""); got != "id" {
		t.Errorf("empty default: got %q, want id", got)
	}
	// Unknown placeholders stay as written.
	if got := DefaultTranslate("", map[string]string{"a": "x"}, "${b}", ""); got != "${b}" {
		t.Errorf("unknown placeholder: got %q", got)
	}
}

func TestIterateMapIsSorted(t *testing.T) {
	items, err := Iterate(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(items) != 3 || items[0] != "a" || items[1] != "b" || items[2] != "c" {
		t.Errorf("items = %v, want sorted keys", items)
	}
}

func TestIterateString(t *testing.T) {
	items, err := Iterate("ab")
	if err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(items) != 2 || items[0] != "a" || items[1] != "b" {
		t.Errorf("items = %v", items)
	}
}

func TestIterateNilIsRecoverableTypeError(t *testing.T) {
	_, err := Iterate(nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var re *Error
	if !errors.As(err, &re) || re.Kind != ErrType {
		t.Errorf("err = %v, want type error", err)
	}
	if !Recoverable(err) {
		t.Error("type error should be recoverable")
	}
}

type town struct {
	Name string
}

func (tw town) Motto() string { return "onward" }

func TestTraverse(t *testing.T) {
	v, err := Traverse(map[string]any{"k": 7}, "k")
	if err != nil || v != 7 {
		t.Errorf("map step = %v, %v", v, err)
	}

	v, err = Traverse(town{Name: "Ons"}, "name")
	if err != nil || v != "Ons" {
		t.Errorf("field fold = %v, %v", v, err)
	}

	v, err = Traverse(town{}, "motto")
	if err != nil || v != "onward" {
		t.Errorf("method fold = %v, %v", v, err)
	}

	v, err = Traverse([]any{"x", "y"}, "1")
	if err != nil || v != "y" {
		t.Errorf("index step = %v, %v", v, err)
	}
}

func TestTraverseErrorKinds(t *testing.T) {
	checks := []struct {
		value any
		step  string
		kind  ErrorKind
	}{
		{map[string]any{}, "missing", ErrLookup},
		{town{}, "missing", ErrAttribute},
		{[]any{"x"}, "9", ErrLookup},
		{[]any{"x"}, "abc", ErrType},
		{nil, "anything", ErrAttribute},
	}
	for _, c := range checks {
		_, err := Traverse(c.value, c.step)
		var re *Error
		if !errors.As(err, &re) || re.Kind != c.kind {
			t.Errorf("Traverse(%#v, %q): err = %v, want kind %v", c.value, c.step, err, c.kind)
		}
	}
}
