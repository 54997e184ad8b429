package source

import (
	"strings"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
)

// Layouts accepted for zoned timestamps, most common first.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
}

// Layouts accepted for timestamps without an offset. These are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp normalises an ISO-8601-like timestamp to a UTC instant.
// A trailing Z is accepted, a missing offset means UTC, and anything
// unparseable yields an absent instant.
func ParseTimestamp(s string) model.Instant {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Instant{}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.At(t)
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return model.At(t)
		}
	}
	return model.Instant{}
}
