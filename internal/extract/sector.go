package extract

import (
	"regexp"
	"strings"

	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

type sectorRow struct {
	key   string
	label *regexp.Regexp
}

// SectorTables reads the per-sector count rows (active credits, closed
// credits, inquiries, ...). Each row needs seven integers after its label.
type SectorTables struct {
	rows      []sectorRow
	subfields []patterns.Subfield
}

// NewSectorTables compiles the category labels of the library
func NewSectorTables(lib *patterns.Library) *SectorTables {
	st := &SectorTables{subfields: lib.SectorSubfields()}
	for _, cat := range lib.SectorCategories() {
		re, err := lib.Matcher().Compile(cat.Pattern)
		if err != nil {
			// Validate already rejected these
			continue
		}
		st.rows = append(st.rows, sectorRow{key: cat.Key, label: re})
	}
	return st
}

func (e *SectorTables) Name() string { return "sector_tables" }

func (e *SectorTables) Extract(text, _ string) map[string]string {
	out := make(map[string]string)
	lines := strings.Split(text, "\n")

	for _, row := range e.rows {
		for _, line := range lines {
			loc := row.label.FindStringIndex(line)
			if loc == nil {
				continue
			}

			values := integerTokens(line[loc[1]:])
			if len(values) < len(e.subfields) {
				continue
			}

			for i, sub := range e.subfields {
				out[patterns.SectorKey(row.key, sub.Key)] = values[i]
			}
			break
		}
	}

	return out
}

// integerTokens returns whitespace-separated tokens that are integers once
// thousands separators are removed
func integerTokens(s string) []string {
	var out []string
	for _, token := range strings.Fields(s) {
		digits := strings.NewReplacer(".", "", ",", "").Replace(token)
		if digits == "" || !allDigits(digits) {
			continue
		}
		out = append(out, digits)
	}
	return out
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Tenure reads the "Antigüedad desde" row of per-sector start dates
type Tenure struct {
	label  *regexp.Regexp
	date   *regexp.Regexp
	fields []patterns.Subfield
}

// NewTenure compiles the tenure row patterns of the library
func NewTenure(lib *patterns.Library) *Tenure {
	t := lib.Tenure()
	// both patterns were checked by Library.Validate; nil disables the row
	label, _ := lib.Matcher().Compile(t.LabelPattern)
	date, _ := regexp.Compile(t.DatePattern)
	return &Tenure{label: label, date: date, fields: t.Fields}
}

func (e *Tenure) Name() string { return "tenure" }

// Extract assigns three dates to financial, real and telecom in that order.
// A single date belongs to the financial sector. Any other count is ambiguous
// and sets nothing.
func (e *Tenure) Extract(text, _ string) map[string]string {
	out := make(map[string]string)
	if e.label == nil || e.date == nil || len(e.fields) != patterns.TenureFieldCount {
		return out
	}

	for _, line := range strings.Split(text, "\n") {
		loc := e.label.FindStringIndex(line)
		if loc == nil {
			continue
		}

		dates := e.date.FindAllString(line[loc[1]:], -1)
		switch len(dates) {
		case 0:
			continue
		case 1:
			out[e.fields[0].Key] = dates[0]
		case 3:
			for i, f := range e.fields {
				out[f.Key] = dates[i]
			}
		}
		return out
	}

	return out
}
