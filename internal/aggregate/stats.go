package aggregate

import (
	"strings"
	"time"

	"github.com/a3tai/datacredito-extractor/internal/document"
)

// FieldStat counts how many records carried a real value for a column
type FieldStat struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// FieldStats returns one entry per table column, in column order. Metadata
// columns always count as present.
func FieldStats(t *Table) []FieldStat {
	total := len(t.Records)
	stats := make([]FieldStat, 0, len(t.Columns))

	for _, col := range t.Columns {
		count := 0
		for _, rec := range t.Records {
			switch col.Key {
			case ColumnFile, ColumnFieldsNum, ColumnProcessed:
				count++
			default:
				if v, ok := rec.Get(col.Key); ok && strings.TrimSpace(v) != "" {
					count++
				}
			}
		}

		stat := FieldStat{Key: col.Key, Count: count, Total: total}
		if total > 0 {
			stat.Percent = float64(count) * 100 / float64(total)
		}
		stats = append(stats, stat)
	}

	return stats
}

// NoFieldsReason is listed for documents that were read but yielded no field
const NoFieldsReason = "sin campos extraídos"

// Failure names a document that produced no usable record
type Failure struct {
	File      string `json:"file"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

// FileCount is the number of fields extracted from one document
type FileCount struct {
	File   string `json:"file"`
	Fields int    `json:"fields"`
}

// Summary describes one run for the summary sheet and API responses
type Summary struct {
	RunID          string      `json:"run_id"`
	GeneratedAt    time.Time   `json:"generated_at"`
	Total          int         `json:"total"`
	Succeeded      int         `json:"succeeded"`
	Failed         int         `json:"failed"`
	SuccessPercent float64     `json:"success_percent"`
	Failures       []Failure   `json:"failures,omitempty"`
	FileCounts     []FileCount `json:"file_counts"`
}

// Summarize counts processed and failed records in input order
func Summarize(runID string, generatedAt time.Time, records []document.Record) Summary {
	s := Summary{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Total:       len(records),
		FileCounts:  make([]FileCount, 0, len(records)),
	}

	for _, rec := range records {
		meta := rec.Meta()
		if meta.Processed {
			s.Succeeded++
		} else {
			s.Failed++
			reason := meta.Error
			if reason == "" {
				reason = NoFieldsReason
			}
			s.Failures = append(s.Failures, Failure{File: meta.Source, Error: reason, ErrorType: meta.ErrorType})
		}
		s.FileCounts = append(s.FileCounts, FileCount{File: meta.Source, Fields: meta.NonEmptyCount})
	}

	if s.Total > 0 {
		s.SuccessPercent = float64(s.Succeeded) * 100 / float64(s.Total)
	}
	return s
}
