package aggregate

import (
	"strings"
	"time"

	"github.com/a3tai/datacredito-extractor/internal/document"
)

// timestamp parses the consultation date of a record in any of the layouts
// reports use
func timestamp(rec document.Record) (time.Time, bool) {
	v, _ := rec.Get(ColumnTimestamp)
	return ParseTimestamp(v)
}

// ParseTimestamp reads a consultation date such as "2024/03/15 10.42 AM"
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
