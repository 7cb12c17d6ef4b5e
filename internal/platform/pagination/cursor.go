package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidCursor indicates the cursor could not be decoded or belongs to
// another resource type.
var ErrInvalidCursor = errors.New("invalid cursor format")

// keySeparator joins keyset parts. It sorts below every printable byte, so
// the joined key orders the same way as the tuple of its parts.
const keySeparator = "\x00"

// Cursor is an opaque position in a sorted listing. Value is the sort key of
// the last item the client has seen.
type Cursor struct {
	Type  string
	Value string
}

// Key joins the sort columns of one item into a cursor value.
func Key(parts ...string) string {
	return strings.Join(parts, keySeparator)
}

// Encode returns a URL-safe opaque Base64 representation.
func (c Cursor) Encode() string {
	return base64.RawURLEncoding.EncodeToString(
		[]byte(c.Type + ":" + c.Value),
	)
}

// DecodeCursor parses a URL-safe Base64 cursor string.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	typ, value, ok := strings.Cut(string(b), ":")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Type: typ, Value: value}, nil
}

// DecodeCursorOf parses s and checks that it was issued for cursorType.
func DecodeCursorOf(s, cursorType string) (Cursor, error) {
	c, err := DecodeCursor(s)
	if err != nil {
		return Cursor{}, err
	}
	if s != "" && c.Type != cursorType {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}
