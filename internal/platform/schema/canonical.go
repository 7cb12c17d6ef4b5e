package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Canonicalize converts v into the JSON value model used by the validator:
// map[string]any, []any, json.Number, string, bool and nil. It accepts any
// value encoding/json can marshal plus the map[any]any trees produced by CBOR
// decoders. The result never aliases v.
func Canonicalize(v any) (Record, error) {
	keyed, err := stringKeys(v)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(keyed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return ParseJSON(raw)
}

// ParseJSON decodes a JSON object into a Record, keeping numbers as
// json.Number. A JSON null yields an empty record.
func ParseJSON(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidRecord)
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

// Native converts json.Number values in v to int64 when integral and float64
// otherwise, recursing into maps and slices. Storage backends and binary
// encoders that do not understand json.Number use it.
func Native(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case Record:
		return Native(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Native(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Native(val)
		}
		return out
	default:
		return v
	}
}

func stringKeys(v any) (any, error) {
	switch x := v.(type) {
	case Record:
		return stringKeys(map[string]any(x))
	case Shape:
		return stringKeys(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			converted, err := stringKeys(val)
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string key %v (%T)", ErrInvalidRecord, k, k)
			}
			converted, err := stringKeys(val)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			converted, err := stringKeys(val)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	default:
		return v, nil
	}
}
