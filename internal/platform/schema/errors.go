package schema

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

// Kind classifies a field-level validation failure.
type Kind int

const (
	// MissingRequiredField: a required field is absent after normalization.
	MissingRequiredField Kind = iota + 1
	// TypeMismatch: a present value matches none of the field's accepted shapes.
	TypeMismatch
	// LengthViolation: a string is shorter or longer than the field allows.
	LengthViolation
	// ConstraintViolation: any other keyword failed (enum, pattern, ...).
	ConstraintViolation
)

// Sentinel errors matched by FieldError.Is.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrLengthViolation      = errors.New("length violation")
	ErrConstraintViolation  = errors.New("constraint violation")

	// ErrInvalidRecord indicates the input is not a JSON object.
	ErrInvalidRecord = errors.New("record is not a valid object")
)

func (k Kind) String() string {
	switch k {
	case MissingRequiredField:
		return "MissingRequiredField"
	case TypeMismatch:
		return "TypeMismatch"
	case LengthViolation:
		return "LengthViolation"
	case ConstraintViolation:
		return "ConstraintViolation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case MissingRequiredField:
		return ErrMissingRequiredField
	case TypeMismatch:
		return ErrTypeMismatch
	case LengthViolation:
		return ErrLengthViolation
	default:
		return ErrConstraintViolation
	}
}

// FieldError identifies one violated field and constraint.
type FieldError struct {
	Field  string // Top-level field name.
	Path   string // JSON pointer to the offending value, e.g. "/marketChartOptions/period".
	Kind   Kind
	Detail string
}

func (e *FieldError) Error() string {
	name := e.Field
	if e.Path != "" && e.Path != "/"+e.Field {
		name = e.Path
	}
	if name == "" {
		name = "(root)"
	}
	return fmt.Sprintf("%s: %s: %s", name, e.Kind, e.Detail)
}

// Is reports whether target is the sentinel for the error's kind.
func (e *FieldError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// ValidationError aggregates every field error found in one record.
type ValidationError struct {
	Issues []*FieldError
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e.Issues[0].Error()
	default:
		return fmt.Sprintf("validation failed: %s (and %d more)", e.Issues[0].Error(), len(e.Issues)-1)
	}
}

// Unwrap exposes each issue to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Issues))
	for i, issue := range e.Issues {
		errs[i] = issue
	}
	return errs
}

// Field returns the first issue reported for the named field, or nil.
func (e *ValidationError) Field(name string) *FieldError {
	for _, issue := range e.Issues {
		if issue.Field == name {
			return issue
		}
	}
	return nil
}

func newValidationError(verr *jsonschema.ValidationError) *ValidationError {
	var issues []*FieldError
	collectIssues(verr, &issues)

	slices.SortFunc(issues, func(a, b *FieldError) int {
		return cmp.Or(
			cmp.Compare(a.Field, b.Field),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.Detail, b.Detail),
		)
	})
	issues = slices.CompactFunc(issues, func(a, b *FieldError) bool {
		return *a == *b
	})

	return &ValidationError{Issues: issues}
}

// collectIssues walks the validator's error tree and records one FieldError per
// failing leaf. anyOf/oneOf failures collapse into a single TypeMismatch for the
// instance, since the value matched none of the alternatives.
func collectIssues(verr *jsonschema.ValidationError, out *[]*FieldError) {
	loc := verr.InstanceLocation

	switch k := verr.ErrorKind.(type) {
	case *kind.Required:
		for _, name := range k.Missing {
			path := append(slices.Clone(loc), name)
			*out = append(*out, newFieldError(path, MissingRequiredField, "required field is absent"))
		}
		return
	case *kind.Type:
		detail := fmt.Sprintf("got %s, want %s", k.Got, strings.Join(k.Want, " or "))
		*out = append(*out, newFieldError(loc, TypeMismatch, detail))
		return
	case *kind.MinLength:
		detail := fmt.Sprintf("length %v is below the minimum of %v", k.Got, k.Want)
		*out = append(*out, newFieldError(loc, LengthViolation, detail))
		return
	case *kind.MaxLength:
		detail := fmt.Sprintf("length %v exceeds the maximum of %v", k.Got, k.Want)
		*out = append(*out, newFieldError(loc, LengthViolation, detail))
		return
	}

	keyword := lastKeyword(verr)
	if keyword == "anyOf" || keyword == "oneOf" {
		*out = append(*out, newFieldError(loc, TypeMismatch, "value matches none of the accepted shapes"))
		return
	}

	if len(verr.Causes) == 0 {
		detail := "constraint failed"
		if keyword != "" {
			detail = keyword + " constraint failed"
		}
		*out = append(*out, newFieldError(loc, ConstraintViolation, detail))
		return
	}

	for _, cause := range verr.Causes {
		collectIssues(cause, out)
	}
}

func lastKeyword(verr *jsonschema.ValidationError) string {
	if verr.ErrorKind == nil {
		return ""
	}
	path := verr.ErrorKind.KeywordPath()
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func newFieldError(location []string, k Kind, detail string) *FieldError {
	fe := &FieldError{Kind: k, Detail: detail}
	if len(location) > 0 {
		fe.Field = location[0]
	}
	fe.Path = pointer(location)
	return fe
}

// pointer renders an instance location as an RFC 6901 JSON pointer.
func pointer(location []string) string {
	if len(location) == 0 {
		return ""
	}
	var b strings.Builder
	for _, token := range location {
		b.WriteByte('/')
		token = strings.ReplaceAll(token, "~", "~0")
		token = strings.ReplaceAll(token, "/", "~1")
		b.WriteString(token)
	}
	return b.String()
}
