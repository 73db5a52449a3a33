package runtime

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DecodeFunc turns raw bytes into output text.
type DecodeFunc func(data []byte) string

// ConvertFunc turns an arbitrary value into output text.
type ConvertFunc func(value any) string

// TranslateFunc resolves a message id to localized text. Mapping entries
// substitute ${name} placeholders; an empty default falls back to the id.
type TranslateFunc func(msgid string, mapping map[string]string, def string, domain string) string

// DefaultDecode decodes bytes as UTF-8 text.
func DefaultDecode(data []byte) string {
	return string(data)
}

// DefaultConvert renders a value with its natural textual form.
func DefaultConvert(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

var rePlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// DefaultTranslate is the translate collaborator of last resort: it returns
// the default (or the message id) with mapping placeholders substituted.
func DefaultTranslate(msgid string, mapping map[string]string, def string, domain string) string {
	text := def
	if text == "" {
		text = msgid
	}
	if len(mapping) == 0 {
		return text
	}
	return rePlaceholder.ReplaceAllStringFunc(text, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := mapping[name]; ok {
			return v
		}
		return m
	})
}

// Interpolate is exported for translate implementations layered on top of
// catalogs: it substitutes ${name} placeholders from mapping.
func Interpolate(text string, mapping map[string]string) string {
	return DefaultTranslate("", mapping, text, "")
}

// reAmp matches an ampersand that does not open a character entity.
var reAmp = regexp.MustCompile(`&(?:([A-Za-z]+|#[0-9]+);)?`)

// EscapeText markup-escapes text. Ampersands already forming an entity are
// kept; quote, when non-empty, is the attribute quote character to escape.
func EscapeText(text, quote string) string {
	if strings.Contains(text, "&") {
		if strings.Contains(text, ";") {
			text = reAmp.ReplaceAllStringFunc(text, func(m string) string {
				if len(m) > 1 {
					return m // part of an entity
				}
				return "&amp;"
			})
		} else {
			text = strings.ReplaceAll(text, "&", "&amp;")
		}
	}
	if strings.Contains(text, "<") {
		text = strings.ReplaceAll(text, "<", "&lt;")
	}
	if strings.Contains(text, ">") {
		text = strings.ReplaceAll(text, ">", "&gt;")
	}
	if quote != "" && strings.Contains(text, quote) {
		text = strings.ReplaceAll(text, quote, "&#34;")
	}
	return text
}

var reWhitespace = regexp.MustCompile(`[\s\p{Z}]+`)

// CollapseWhitespace reduces runs of Unicode whitespace to a single space
// and trims the ends. Translation blocks use the result as the message id.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// Truthy reports the truth of a value: nil, false, the absence marker,
// zero numbers and empty strings/containers are false.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	}
	if value == Missing {
		return false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// Iterate materializes an iterable into a slice of items. Maps iterate
// their keys in sorted order for deterministic output; strings iterate
// runes. Anything else is a recoverable type error.
func Iterate(value any) ([]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, typeError("nil is not iterable")
	case []any:
		return v, nil
	case []string:
		items := make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
		return items, nil
	case string:
		items := make([]any, 0, len(v))
		for _, r := range v {
			items = append(items, string(r))
		}
		return items, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return items, nil
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		byKey := make(map[string]any, rv.Len())
		for _, k := range rv.MapKeys() {
			ks := fmt.Sprint(k.Interface())
			keys = append(keys, ks)
			byKey[ks] = k.Interface()
		}
		sort.Strings(keys)
		items := make([]any, len(keys))
		for i, k := range keys {
			items[i] = byKey[k]
		}
		return items, nil
	default:
		return nil, typeError("%T is not iterable", value)
	}
}

// Traverse resolves one path step against a value: map key, struct field,
// slice index or zero-argument method. Field and method lookup falls back
// to a case-insensitive match so template paths can stay lowercase.
func Traverse(value any, step string) (any, error) {
	if value == nil {
		return nil, attributeError(step)
	}
	if value == Missing {
		return nil, attributeError(step)
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, attributeError(step)
		}
		if m, ok := methodByNameFold(rv, step); ok {
			return callNullary(m)
		}
		rv = rv.Elem()
	}

	if m, ok := methodByNameFold(rv, step); ok {
		return callNullary(m)
	}

	switch rv.Kind() {
	case reflect.Map:
		kv := reflect.ValueOf(step)
		if !kv.Type().AssignableTo(rv.Type().Key()) {
			return nil, lookupError(step)
		}
		got := rv.MapIndex(kv)
		if !got.IsValid() {
			return nil, lookupError(step)
		}
		return got.Interface(), nil
	case reflect.Struct:
		if f := fieldByNameFold(rv, step); f.IsValid() {
			return f.Interface(), nil
		}
		return nil, attributeError(step)
	case reflect.Slice, reflect.Array, reflect.String:
		idx, err := strconv.Atoi(step)
		if err != nil {
			return nil, typeError("index %q into %T", step, value)
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, lookupError(step)
		}
		if rv.Kind() == reflect.String {
			return string(rv.String()[idx]), nil
		}
		return rv.Index(idx).Interface(), nil
	default:
		return nil, attributeError(step)
	}
}

func methodByNameFold(rv reflect.Value, name string) (reflect.Value, bool) {
	t := rv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if strings.EqualFold(m.Name, name) {
			return rv.Method(i), true
		}
	}
	return reflect.Value{}, false
}

func callNullary(m reflect.Value) (any, error) {
	if m.Type().NumIn() != 0 {
		return m.Interface(), nil
	}
	out := m.Call(nil)
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func fieldByNameFold(rv reflect.Value, name string) reflect.Value {
	if f := rv.FieldByName(name); f.IsValid() {
		return f
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.IsExported() && strings.EqualFold(f.Name, name) {
			return rv.Field(i)
		}
	}
	return reflect.Value{}
}
