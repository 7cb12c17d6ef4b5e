package schema

import (
	"encoding/json"
	"math"
	"reflect"
)

// DefaultIfAbsent keeps the field's value whenever the key is present, null
// included, and substitutes def only when the key is missing.
func DefaultIfAbsent(field string, def any) Rule {
	return func(in Record) any {
		if v, ok := in[field]; ok {
			return v
		}
		return cloneValue(def)
	}
}

// DefaultIfFalsy keeps the field's value when it is truthy and substitutes def
// otherwise. See Truthy.
func DefaultIfFalsy(field string, def any) Rule {
	return func(in Record) any {
		if v := in[field]; Truthy(v) {
			return v
		}
		return cloneValue(def)
	}
}

// DefaultUnlessBool keeps the field's value only when it is a boolean. Strings
// such as "false" are replaced by def.
func DefaultUnlessBool(field string, def any) Rule {
	return func(in Record) any {
		if b, ok := in[field].(bool); ok {
			return b
		}
		return cloneValue(def)
	}
}

// Truthy reports whether v counts as set for DefaultIfFalsy. Absent, null,
// false, zero, NaN and the empty string are falsy; every object and array is
// truthy, empty ones included.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x != ""
		}
		return f != 0 && !math.IsNaN(f)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// cloneValue deep-copies maps and slices so defaults are never shared between
// normalized records.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case Record:
		return cloneValue(map[string]any(x))
	case Shape:
		return cloneValue(map[string]any(x))
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}
