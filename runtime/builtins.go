package runtime

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// DefaultBuiltins returns the host helper values name reads may fall back
// to when a name is absent from the dynamic context. The set is
// configurable on the compiler side; this is the matching runtime table.
func DefaultBuiltins() map[string]any {
	return map[string]any{
		"len":      builtinLen,
		"str":      DefaultConvert,
		"int":      builtinInt,
		"float":    builtinFloat,
		"bool":     Truthy,
		"min":      builtinMin,
		"max":      builtinMax,
		"sum":      builtinSum,
		"abs":      builtinAbs,
		"sorted":   builtinSorted,
		"reversed": builtinReversed,
		"range":    builtinRange,
	}
}

func builtinLen(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return len(t)
	case []any:
		return len(t)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	}
	return 0
}

func builtinInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	case bool:
		if t {
			return 1
		}
	}
	return 0
}

func builtinFloat(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	}
	return 0
}

func builtinAbs(v any) float64 {
	f := builtinFloat(v)
	if f < 0 {
		return -f
	}
	return f
}

func builtinSum(v any) float64 {
	items, err := Iterate(v)
	if err != nil {
		return 0
	}
	var total float64
	for _, it := range items {
		total += builtinFloat(it)
	}
	return total
}

func builtinMin(v any) any {
	return builtinExtreme(v, false)
}

func builtinMax(v any) any {
	return builtinExtreme(v, true)
}

func builtinExtreme(v any, max bool) any {
	items, err := Iterate(v)
	if err != nil || len(items) == 0 {
		return nil
	}
	best := items[0]
	for _, it := range items[1:] {
		if (builtinFloat(it) > builtinFloat(best)) == max {
			best = it
		}
	}
	return best
}

func builtinSorted(v any) []any {
	items, err := Iterate(v)
	if err != nil {
		return nil
	}
	out := append([]any(nil), items...)
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}

func builtinReversed(v any) []any {
	items, err := Iterate(v)
	if err != nil {
		return nil
	}
	out := make([]any, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return out
}

func builtinRange(v any) []any {
	n := builtinInt(v)
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, i)
	}
	return out
}
