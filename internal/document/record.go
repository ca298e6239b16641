// Package document turns one report into an immutable record of fields
package document

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Metadata describes how a record was produced
type Metadata struct {
	Source        string    `json:"source"`
	Path          string    `json:"path,omitempty"`
	CharCount     int       `json:"char_count"`
	NonEmptyCount int       `json:"non_empty_count"`
	Processed     bool      `json:"processed"`
	Error         string    `json:"error,omitempty"`
	ErrorType     string    `json:"error_type,omitempty"`
	Pages         int       `json:"pages,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`

	ReportType       string  `json:"report_type,omitempty"`
	ReportConfidence float64 `json:"report_confidence,omitempty"`
}

// Record is the extraction result for one document. It is never modified
// after construction and its accessors hand out copies.
type Record struct {
	fields map[string]string
	meta   Metadata
}

// NewRecord builds a record and derives the non-empty count and processed
// flag from the fields
func NewRecord(fields map[string]string, meta Metadata) Record {
	copied := make(map[string]string, len(fields))
	nonEmpty := 0
	for k, v := range fields {
		copied[k] = v
		if strings.TrimSpace(v) != "" {
			nonEmpty++
		}
	}

	meta.NonEmptyCount = nonEmpty
	meta.Processed = nonEmpty > 0
	if meta.ProcessedAt.IsZero() {
		meta.ProcessedAt = time.Now()
	}

	return Record{fields: copied, meta: meta}
}

// NewErrorRecord builds a record for a document that could not be read
func NewErrorRecord(source, path string, err error, errType string) Record {
	return NewRecord(nil, Metadata{
		Source:    source,
		Path:      path,
		Error:     err.Error(),
		ErrorType: errType,
	})
}

// Fields returns a copy of the extracted values
func (r Record) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

// Get returns one field value
func (r Record) Get(key string) (string, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Keys returns the field keys in sorted order
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Meta returns the record metadata
func (r Record) Meta() Metadata {
	return r.meta
}

// Failed reports whether reading or extraction failed
func (r Record) Failed() bool {
	return r.meta.Error != ""
}

// MarshalJSON encodes the record as its fields plus metadata
func (r Record) MarshalJSON() ([]byte, error) {
	fields := r.fields
	if fields == nil {
		fields = map[string]string{}
	}
	return json.Marshal(struct {
		Fields map[string]string `json:"fields"`
		Meta   Metadata          `json:"meta"`
	}{fields, r.meta})
}
