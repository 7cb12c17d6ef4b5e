// Package schema compiles record descriptors into JSON Schema validators and
// applies their per-field normalization rules.
//
// A descriptor lists fields, the JSON Schema fragment each field accepts, an
// optional normalization rule, and the set of required field names. Normalize
// runs every rule against the raw input record, then validates the result
// against the compiled schema.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const draft2020 = "https://json-schema.org/draft/2020-12/schema"

// Record is a candidate or normalized record keyed by field name.
type Record map[string]any

// Shape is a JSON Schema fragment describing the values a field accepts.
type Shape map[string]any

// Rule computes the effective value of a field from the whole input record.
// Rules see the raw input only, never another field's normalized value.
type Rule func(in Record) any

// Field declares one property of a record.
type Field struct {
	Name  string
	Shape Shape
	Rule  Rule
}

// Descriptor is a compiled record declaration. It is immutable and safe for
// concurrent use.
type Descriptor struct {
	id       string
	fields   []Field
	required []string
	document map[string]any
	compiled *jsonschema.Schema
}

// New builds and compiles a descriptor. The id is used as the schema's $id and
// must be an absolute URL.
func New(id string, fields []Field, required []string) (*Descriptor, error) {
	if id == "" {
		return nil, errors.New("descriptor id is required")
	}

	declared := make(map[string]struct{}, len(fields))
	properties := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, errors.New("field name is required")
		}
		if _, dup := declared[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		declared[f.Name] = struct{}{}

		shape := map[string]any{}
		if f.Shape != nil {
			shape = cloneValue(map[string]any(f.Shape)).(map[string]any)
		}
		properties[f.Name] = shape
	}

	requiredList := make([]any, 0, len(required))
	for _, name := range required {
		if _, ok := declared[name]; !ok {
			return nil, fmt.Errorf("required field %q is not declared", name)
		}
		requiredList = append(requiredList, name)
	}

	document := map[string]any{
		"$schema":    draft2020,
		"$id":        id,
		"type":       "object",
		"properties": properties,
	}
	if len(requiredList) > 0 {
		document["required"] = requiredList
	}

	compiled, err := compile(id, document)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		id:       id,
		fields:   append([]Field(nil), fields...),
		required: append([]string(nil), required...),
		document: document,
		compiled: compiled,
	}, nil
}

// MustNew is like New but panics on error. Use it for package-level descriptors.
func MustNew(id string, fields []Field, required []string) *Descriptor {
	d, err := New(id, fields, required)
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return d
}

func compile(id string, document map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// ID returns the schema $id.
func (d *Descriptor) ID() string {
	return d.id
}

// Fields returns a copy of the declared fields in declaration order.
func (d *Descriptor) Fields() []Field {
	return append([]Field(nil), d.fields...)
}

// Required returns a copy of the required field names.
func (d *Descriptor) Required() []string {
	return append([]string(nil), d.required...)
}

// Document returns a copy of the JSON Schema document the descriptor compiles.
func (d *Descriptor) Document() map[string]any {
	return cloneValue(d.document).(map[string]any)
}

// Normalize applies every normalization rule to in and validates the result.
// Every rule receives the canonical input record, so no rule observes another
// field's normalized value. Keys without a declared field pass through.
func (d *Descriptor) Normalize(in Record) (Record, error) {
	src, err := Canonicalize(in)
	if err != nil {
		return nil, err
	}

	out := make(Record, len(src)+len(d.fields))
	maps.Copy(out, src)
	for _, f := range d.fields {
		if f.Rule == nil {
			continue
		}
		out[f.Name] = f.Rule(src)
	}

	// Rule defaults are Go literals; bring them into the JSON value model.
	out, err = Canonicalize(out)
	if err != nil {
		return nil, fmt.Errorf("canonicalize normalized record: %w", err)
	}

	if err := d.validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks rec against the declared shapes and required set without
// applying any normalization rule.
func (d *Descriptor) Validate(rec Record) error {
	canonical, err := Canonicalize(rec)
	if err != nil {
		return err
	}
	return d.validate(canonical)
}

func (d *Descriptor) validate(rec Record) error {
	err := d.compiled.Validate(map[string]any(rec))
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}
	return newValidationError(validationErr)
}
