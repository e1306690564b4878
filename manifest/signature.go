package manifest

import (
	"strconv"
	"strings"
	"time"
)

// NoDateAvailable is displayed when a manifest carries no signing time.
const NoDateAvailable = "No date available"

// signatureTimeLayouts are the ISO-8601 shapes accepted for signing times.
// Zone-less values are read as UTC.
var signatureTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseSignatureTime parses an ISO-8601 signing time.
//
// A malformed value is an upstream data-integrity problem and is reported as a
// KindDateParse error rather than defaulted.
func ParseSignatureTime(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, NewError(KindDateParse, "C2PA-DATE-001", "empty signature time")
	}
	for _, layout := range signatureTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewError(KindDateParse, "C2PA-DATE-002", "invalid ISO-8601 signature time "+strconv.Quote(v))
}
