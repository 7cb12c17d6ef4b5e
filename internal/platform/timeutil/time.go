// Package timeutil fixes the timestamp formats used in API payloads and logs.
package timeutil

import (
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// RFC3339Millis is RFC 3339 UTC with fixed millisecond precision. API
// timestamps use it.
const RFC3339Millis = "2006-01-02T15:04:05.000Z"

// RFC3339Micros is RFC 3339 UTC with fixed microsecond precision. Log
// timestamps use it.
const RFC3339Micros = "2006-01-02T15:04:05.000000Z"

// Time encodes as an RFC3339Millis string in both JSON and CBOR, for example
// "2024-01-15T10:30:00.000Z". Decoding accepts any RFC 3339 variant; a null
// leaves the value unchanged, as with time.Time.
type Time struct {
	time.Time
}

// NewTime wraps t.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// Now returns the current time.
func Now() Time {
	return Time{Time: time.Now()}
}

// String formats t as RFC3339Millis in UTC.
func (t Time) String() string {
	return t.UTC().Format(RFC3339Millis)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.parse(s)
}

// MarshalCBOR writes a text string, matching the JSON form so clients can
// switch formats without re-parsing dates.
func (t Time) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.String())
}

func (t *Time) UnmarshalCBOR(data []byte) error {
	var s *string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	return t.parse(*s)
}

func (t *Time) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
