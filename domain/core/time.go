package core

import (
	"time"
)

// Timestamp is an explicit generation time supplied by the caller. The core
// never reads the wall clock; every snapshot carries the caller's timestamp.
type Timestamp time.Time

// NewTimestamp creates a new timestamp from time.Time, normalized to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC())
}

// ParseTimestamp parses an RFC3339 timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Timestamp{}, NewValidationError("generatedAt", err.Error())
	}
	return NewTimestamp(t), nil
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

// String renders the timestamp as RFC3339 in UTC.
func (t Timestamp) String() string {
	return time.Time(t).UTC().Format(time.RFC3339)
}

// MarshalJSON renders RFC3339 at second precision so output stays byte-stable.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var tm time.Time
	if err := tm.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = NewTimestamp(tm)
	return nil
}
