package codec

import (
	"testing"
	"time"
)

func TestFormatParseTimestampRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)
	formatted := FormatTimestamp(now)
	parsed, err := ParseTimestamp(formatted)
	if err != nil {
		t.Fatalf("parse %q: %v", formatted, err)
	}
	if !parsed.Equal(now) {
		t.Errorf("expected %v, got %v", now, parsed)
	}
}

func TestFormatTimestampNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	local := time.Date(2026, 3, 5, 7, 30, 0, 0, loc)
	formatted := FormatTimestamp(local)
	if formatted[len(formatted)-1] != 'Z' {
		t.Fatalf("expected a Z-suffixed UTC timestamp, got %q", formatted)
	}
	parsed, err := ParseTimestamp(formatted)
	if err != nil {
		t.Fatalf("parse %q: %v", formatted, err)
	}
	if !parsed.Equal(local) {
		t.Errorf("expected equivalent instant, got %v vs %v", parsed, local)
	}
}
