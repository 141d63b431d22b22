package codec

import "time"

// timestampLayout is the ISO-8601 UTC form used for every *-Last-Modified
// stats value.
const timestampLayout = time.RFC3339Nano

// FormatTimestamp renders t as ISO-8601 UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses an ISO-8601 UTC timestamp written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
