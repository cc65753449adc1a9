package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// FormatISO formats t as ISO 8601 with a numeric offset ("+00:00" rather
// than "Z"). Fractional seconds appear only when non-zero, as microseconds
// or, when needed, nanoseconds.
func FormatISO(t time.Time) string {
	layout := "2006-01-02T15:04:05"
	switch ns := t.Nanosecond(); {
	case ns == 0:
	case ns%1000 == 0:
		layout += ".000000"
	default:
		layout += ".000000000"
	}
	return t.Format(layout + "-07:00")
}

// OutputStem names the output files of one run:
// <run time>__<data start>_to_<data end>, with colons replaced so the name
// is valid on every filesystem.
func OutputStem(now time.Time, r model.TimeRange) string {
	stem := fmt.Sprintf("%s__%s_to_%s",
		now.Format("2006-01-02T15:04:05"),
		FormatISO(r.Start),
		FormatISO(r.End),
	)
	return strings.ReplaceAll(stem, ":", "-")
}
