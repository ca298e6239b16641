package workbook

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/a3tai/datacredito-extractor/internal/aggregate"
	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

// Fixed labels of the metadata columns
var metadataLabels = map[string]string{
	aggregate.ColumnFile:      "Archivo",
	aggregate.ColumnFieldsNum: "Total Campos Extraídos",
	aggregate.ColumnProcessed: "Procesado",
}

// band is a header span on row 1. Grouped bands carry sub-labels on row 2,
// ungrouped bands cover a single column over both rows.
type band struct {
	Label   string
	First   int // zero-based column index
	Last    int
	Grouped bool
}

// layout is derived from a table at render time
type layout struct {
	bands     []band
	subLabels []string // row 2 text per column, empty for ungrouped columns
	labels    []string // the most specific header per column
	rowBands  []int    // 0 or 1 per data row
	widths    []float64
	cells     [][]string // truncated display values
}

func (w *Writer) buildLayout(table *aggregate.Table) layout {
	n := len(table.Columns)
	l := layout{
		subLabels: make([]string, n),
		labels:    make([]string, n),
		widths:    make([]float64, n),
	}

	groupOf := make(map[string]int)
	groups := w.lib.Groups()
	for gi, g := range groups {
		for _, k := range g.Keys {
			groupOf[k] = gi
		}
	}

	for i, col := range table.Columns {
		gi, grouped := groupOf[col.Key]
		if !grouped {
			label := w.HeaderLabel(col.Key)
			l.labels[i] = label
			l.bands = append(l.bands, band{Label: label, First: i, Last: i})
			continue
		}

		sub := groups[gi].SubLabels[col.Key]
		l.subLabels[i] = sub
		l.labels[i] = sub

		last := len(l.bands) - 1
		if last >= 0 && l.bands[last].Grouped && l.bands[last].Last == i-1 && l.bands[last].Label == groups[gi].Label {
			l.bands[last].Last = i
			continue
		}
		l.bands = append(l.bands, band{Label: groups[gi].Label, First: i, Last: i, Grouped: true})
	}

	l.cells = make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		cells := make([]string, len(row))
		for c, v := range row {
			cells[c] = truncate(v, w.opts.MaxCellRunes)
		}
		l.cells[r] = cells
	}

	subject := table.ColumnIndex(aggregate.ColumnSubject)
	l.rowBands = make([]int, len(table.Rows))
	current := 0
	for r := range table.Rows {
		if r > 0 && subject >= 0 && table.Rows[r][subject] != table.Rows[r-1][subject] {
			current = 1 - current
		}
		l.rowBands[r] = current
	}

	for c := 0; c < n; c++ {
		longest := utf8.RuneCountInString(l.labels[c])
		for r := range l.cells {
			if k := utf8.RuneCountInString(l.cells[r][c]); k > longest {
				longest = k
			}
		}
		l.widths[c] = clampWidth(longest, w.opts.ColMin, w.opts.ColMax)
	}

	return l
}

// HeaderLabel returns the display header for an ungrouped column
func (w *Writer) HeaderLabel(key string) string {
	if label, ok := metadataLabels[key]; ok {
		return label
	}
	if label := w.lib.Label(key); label != "" {
		return label
	}
	return CleanHeader(w.lib, key)
}

// CleanHeader turns a key such as auto_numero_cuenta into "Número Cuenta"
func CleanHeader(lib *patterns.Library, key string) string {
	key = strings.TrimPrefix(key, "auto_")
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))

	title := cases.Title(language.Spanish)
	for i, word := range words {
		if replacement, ok := lib.HeaderWord(strings.ToLower(word)); ok {
			words[i] = replacement
			continue
		}
		words[i] = title.String(word)
	}
	return strings.Join(words, " ")
}

func truncate(value string, max int) string {
	if max <= 3 || utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	return string(runes[:max-3]) + "..."
}

func clampWidth(n, lo, hi int) float64 {
	if n < lo {
		n = lo
	}
	if n > hi {
		n = hi
	}
	return float64(n)
}
