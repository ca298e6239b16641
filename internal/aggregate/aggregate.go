// Package aggregate merges document records into one rectangular table
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/a3tai/datacredito-extractor/internal/document"
	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

// Metadata column keys appended to every table
const (
	ColumnFile      = "archivo"
	ColumnFieldsNum = "total_campos_extraidos"
	ColumnProcessed = "procesado"
)

// Identity and timestamp columns used for row ordering
const (
	ColumnSubject   = "nombre"
	ColumnTimestamp = "fecha_consulta"
)

const (
	DefaultTextValue    = "SIN INFO"
	DefaultNumericValue = "0"
	ProcessedYes        = "Sí"
	ProcessedNo         = "No"
)

var timestampLayouts = []string{
	"2006/01/02 3.04 PM",
	"2006/01/02 15.04",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006/01/02",
	"2006-01-02",
}

// Column is one output column
type Column struct {
	Key     string `json:"key"`
	Numeric bool   `json:"numeric"`
}

// Table holds one row per record. Every row has exactly len(Columns) cells
// and none is empty. Records is in the same order as Rows.
type Table struct {
	Columns []Column
	Rows    [][]string
	Records []document.Record
}

// ColumnIndex returns the position of a key or -1
func (t *Table) ColumnIndex(key string) int {
	for i, c := range t.Columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Keys returns the column keys in order
func (t *Table) Keys() []string {
	keys := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		keys[i] = c.Key
	}
	return keys
}

// Aggregator applies the column policy of a pattern library
type Aggregator struct {
	lib         *patterns.Library
	textDefault string
}

// New creates an aggregator. An empty textDefault falls back to DefaultTextValue.
func New(lib *patterns.Library, textDefault string) *Aggregator {
	if strings.TrimSpace(textDefault) == "" {
		textDefault = DefaultTextValue
	}
	return &Aggregator{lib: lib, textDefault: textDefault}
}

// TextDefault returns the value used for missing text cells
func (a *Aggregator) TextDefault() string {
	return a.textDefault
}

// Aggregate unions the field keys of all records, orders the columns, fills
// defaults and sorts rows by subject then most recent consultation
func (a *Aggregator) Aggregate(records []document.Record) (*Table, error) {
	sorted := make([]document.Record, len(records))
	copy(sorted, records)
	sortRecords(sorted)

	columns := a.columns(sorted)
	rows := make([][]string, 0, len(sorted))
	for _, rec := range sorted {
		rows = append(rows, a.row(rec, columns))
	}

	table := &Table{Columns: columns, Rows: rows, Records: sorted}
	if err := table.check(); err != nil {
		return nil, err
	}
	return table, nil
}

// columns orders the union of keys: priority list first, then the rest
// alphabetically ignoring case
func (a *Aggregator) columns(records []document.Record) []Column {
	present := map[string]bool{
		ColumnFile:      true,
		ColumnFieldsNum: true,
		ColumnProcessed: true,
	}
	for _, rec := range records {
		for _, k := range rec.Keys() {
			present[k] = true
		}
	}

	var ordered []string
	used := make(map[string]bool)
	for _, k := range a.lib.PriorityColumns() {
		if present[k] && !used[k] {
			ordered = append(ordered, k)
			used[k] = true
		}
	}

	var rest []string
	for k := range present {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	slots := a.groupSlots()
	slot := func(k string) groupSlot {
		if s, ok := slots[k]; ok {
			return s
		}
		return groupSlot{anchor: strings.ToLower(k), pos: -1}
	}
	sort.Slice(rest, func(i, j int) bool {
		si, sj := slot(rest[i]), slot(rest[j])
		if si.anchor != sj.anchor {
			return si.anchor < sj.anchor
		}
		if si.pos != sj.pos {
			return si.pos < sj.pos
		}
		return rest[i] < rest[j]
	})
	ordered = append(ordered, rest...)

	columns := make([]Column, len(ordered))
	for i, k := range ordered {
		columns[i] = Column{Key: k, Numeric: a.lib.IsNumeric(k)}
	}
	return columns
}

// groupSlot places a key in the alphabetical tier. Keys of one header group
// share the anchor of the group's first key in alphabetical order and keep
// the group's own order among themselves.
type groupSlot struct {
	anchor string
	pos    int
}

func (a *Aggregator) groupSlots() map[string]groupSlot {
	slots := make(map[string]groupSlot)
	for _, g := range a.lib.Groups() {
		if len(g.Keys) == 0 {
			continue
		}
		anchor := strings.ToLower(g.Keys[0])
		for _, k := range g.Keys[1:] {
			if lk := strings.ToLower(k); lk < anchor {
				anchor = lk
			}
		}
		for i, k := range g.Keys {
			slots[k] = groupSlot{anchor: anchor, pos: i}
		}
	}
	return slots
}

func (a *Aggregator) row(rec document.Record, columns []Column) []string {
	meta := rec.Meta()
	row := make([]string, len(columns))

	for i, col := range columns {
		var value string
		switch col.Key {
		case ColumnFile:
			value = meta.Source
		case ColumnFieldsNum:
			value = strconv.Itoa(meta.NonEmptyCount)
		case ColumnProcessed:
			value = ProcessedNo
			if meta.Processed {
				value = ProcessedYes
			}
		default:
			value, _ = rec.Get(col.Key)
		}

		value = strings.TrimSpace(value)
		if value == "" {
			value = a.defaultFor(col)
		}
		row[i] = value
	}

	return row
}

func (a *Aggregator) defaultFor(col Column) string {
	if col.Numeric {
		return DefaultNumericValue
	}
	return a.textDefault
}

func (t *Table) check() error {
	for r, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", r, len(row), len(t.Columns))
		}
		for c, cell := range row {
			if strings.TrimSpace(cell) == "" {
				return fmt.Errorf("row %d column %s is empty", r, t.Columns[c].Key)
			}
		}
	}
	if len(t.Records) != len(t.Rows) {
		return fmt.Errorf("table has %d rows but %d records", len(t.Rows), len(t.Records))
	}
	return nil
}

// sortRecords orders by subject ascending, case-insensitive, then by
// consultation timestamp descending. Records without a subject or with an
// unreadable timestamp go after the others; ties keep input order.
func sortRecords(records []document.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		si, iok := subject(records[i])
		sj, jok := subject(records[j])
		if iok != jok {
			return iok
		}
		if si != sj {
			return si < sj
		}

		ti, iok := timestamp(records[i])
		tj, jok := timestamp(records[j])
		if iok != jok {
			return iok
		}
		if iok && !ti.Equal(tj) {
			return ti.After(tj)
		}
		return false
	})
}

func subject(rec document.Record) (string, bool) {
	v, _ := rec.Get(ColumnSubject)
	v = strings.ToLower(strings.TrimSpace(v))
	return v, v != ""
}
