package siemfeed

import (
	"fmt"
	"time"
)

// Field names injected into events by AnnotateEvents.
const (
	TimeField   = "_time"
	StatusField = "_ENTRY_STATUS"
)

// Values AnnotateEvents writes to StatusField.
const (
	StatusNew      = "new"
	StatusModified = "modified"
)

// TimestampFormat is the wire format for timestamps this module emits:
// second precision, UTC, trailing Z. The trailing Z is a literal so the
// rendered value never carries a numeric offset.
const TimestampFormat = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in TimestampFormat after converting to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Event is a single vendor-native record. Records are kept as loose maps
// end to end so unknown vendor fields survive the trip into the sink.
type Event map[string]any

// StringField returns the named field rendered as a string. Non-string
// scalars are formatted with fmt; absent and nil fields report ok=false.
func (e Event) StringField(key string) (string, bool) {
	v, ok := e[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// AnnotateEvents tags each event in place with TimeField and StatusField,
// derived from the event's created and modified timestamps:
//
//   - StatusField is StatusModified when both timestamps exist and
//     modified is strictly later than created, StatusNew otherwise.
//   - TimeField is the modification timestamp when the status is
//     modified, otherwise the creation timestamp, rendered in
//     TimestampFormat. With no creation timestamp the field is present
//     but explicitly nil.
//
// The annotations are always re-derived from the source fields, so running
// the function twice over the same events yields the same result.
func AnnotateEvents(events []Event) {
	for _, e := range events {
		annotate(e)
	}
}

func annotate(e Event) {
	created, hasCreated := eventTime(e, "created")
	modified, hasModified := eventTime(e, "modified")

	if hasCreated && hasModified && modified.After(created) {
		e[StatusField] = StatusModified
		e[TimeField] = FormatTimestamp(modified)
		return
	}

	e[StatusField] = StatusNew
	if hasCreated {
		e[TimeField] = FormatTimestamp(created)
	} else {
		e[TimeField] = nil
	}
}

// eventTime reads the named field and parses it as a timestamp.
func eventTime(e Event, key string) (time.Time, bool) {
	s, ok := e.StringField(key)
	if !ok || s == "" {
		return time.Time{}, false
	}
	return parseTimestamp(s)
}

// timestampLayouts covers the shapes the vendors emit: RFC 3339 with and
// without fractional seconds, and the same without a zone designator.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
