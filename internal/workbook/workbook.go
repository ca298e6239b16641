// Package workbook renders an aggregated table into a formatted XLSX file
package workbook

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/datacredito-extractor/internal/aggregate"
	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

// Sheet names
const (
	SheetData        = "Datos_Completos"
	SheetSummary     = "Resumen"
	SheetDiagnostics = "Diagnóstico Técnico"
	SheetError       = "Error"
)

// Presentation defaults
const (
	DefaultColMin       = 12
	DefaultColMax       = 25
	DefaultMaxCellRunes = 200

	ColorHeaderPrimary   = "1F4E79"
	ColorHeaderSecondary = "8DB4E2"
	ColorBandA           = "F2F2F2"
	ColorBandB           = "FFFFFF"
)

// Options controls column widths and cell truncation
type Options struct {
	ColMin       int
	ColMax       int
	MaxCellRunes int
}

// DefaultOptions returns the standard presentation bounds
func DefaultOptions() Options {
	return Options{
		ColMin:       DefaultColMin,
		ColMax:       DefaultColMax,
		MaxCellRunes: DefaultMaxCellRunes,
	}
}

// Writer materializes tables as workbooks
type Writer struct {
	lib  *patterns.Library
	opts Options
}

// New creates a writer. Non-positive bounds fall back to the defaults.
func New(lib *patterns.Library, opts Options) *Writer {
	d := DefaultOptions()
	if opts.ColMin <= 0 {
		opts.ColMin = d.ColMin
	}
	if opts.ColMax <= 0 {
		opts.ColMax = d.ColMax
	}
	if opts.ColMax < opts.ColMin {
		opts.ColMax = opts.ColMin
	}
	if opts.MaxCellRunes <= 0 {
		opts.MaxCellRunes = d.MaxCellRunes
	}
	return &Writer{lib: lib, opts: opts}
}

type styles struct {
	headerPrimary   int
	headerSecondary int
	bands           [2]int
	bold            int
}

// Render builds the workbook in memory. The caller owns the returned file
// and must Close it.
func (w *Writer) Render(table *aggregate.Table, summary aggregate.Summary) (*excelize.File, error) {
	if table == nil {
		return nil, errors.New("cannot render a nil table")
	}

	f := excelize.NewFile()
	if err := w.render(f, table, summary); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (w *Writer) render(f *excelize.File, table *aggregate.Table, summary aggregate.Summary) error {
	if err := f.SetSheetName("Sheet1", SheetData); err != nil {
		return fmt.Errorf("failed to name data sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := w.writeData(f, st, table); err != nil {
		return fmt.Errorf("failed to write %s: %w", SheetData, err)
	}
	if err := w.writeSummary(f, st, summary); err != nil {
		return fmt.Errorf("failed to write %s: %w", SheetSummary, err)
	}
	if err := w.writeDiagnostics(f, st, table); err != nil {
		return fmt.Errorf("failed to write %s: %w", SheetDiagnostics, err)
	}

	f.SetActiveSheet(0)
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	st.headerPrimary, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{ColorHeaderPrimary}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Alignment: center,
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("failed to create header style: %w", err)
	}

	st.headerSecondary, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{ColorHeaderSecondary}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: center,
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("failed to create sub-header style: %w", err)
	}

	for i, color := range []string{ColorBandA, ColorBandB} {
		st.bands[i], err = f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Vertical: "center"},
			Border:    border,
		})
		if err != nil {
			return st, fmt.Errorf("failed to create band style: %w", err)
		}
	}

	st.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return st, fmt.Errorf("failed to create bold style: %w", err)
	}

	return st, nil
}

func (w *Writer) writeData(f *excelize.File, st styles, table *aggregate.Table) error {
	if len(table.Columns) == 0 {
		return nil
	}

	l := w.buildLayout(table)

	for _, b := range l.bands {
		first, err := excelize.CoordinatesToCellName(b.First+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetData, first, b.Label); err != nil {
			return err
		}

		if b.Grouped {
			last, err := excelize.CoordinatesToCellName(b.Last+1, 1)
			if err != nil {
				return err
			}
			if b.Last > b.First {
				if err := f.MergeCell(SheetData, first, last); err != nil {
					return err
				}
			}
			if err := f.SetCellStyle(SheetData, first, last, st.headerPrimary); err != nil {
				return err
			}
			for c := b.First; c <= b.Last; c++ {
				cell, err := excelize.CoordinatesToCellName(c+1, 2)
				if err != nil {
					return err
				}
				if err := f.SetCellValue(SheetData, cell, l.subLabels[c]); err != nil {
					return err
				}
				if err := f.SetCellStyle(SheetData, cell, cell, st.headerSecondary); err != nil {
					return err
				}
			}
			continue
		}

		below, err := excelize.CoordinatesToCellName(b.First+1, 2)
		if err != nil {
			return err
		}
		if err := f.MergeCell(SheetData, first, below); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetData, first, below, st.headerPrimary); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(table.Columns))
	if err != nil {
		return err
	}

	for r, cells := range l.cells {
		row := r + 3
		for c, value := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetData, cell, cellValue(table.Columns[c], value)); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(SheetData, "A"+strconv.Itoa(row), lastCol+strconv.Itoa(row), st.bands[l.rowBands[r]]); err != nil {
			return err
		}
	}

	for c, width := range l.widths {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetData, name, name, width); err != nil {
			return err
		}
	}

	return f.SetPanes(SheetData, &excelize.Panes{
		Freeze:      true,
		YSplit:      2,
		TopLeftCell: "A3",
		ActivePane:  "bottomLeft",
	})
}

// cellValue writes integer cells of numeric columns as numbers
func cellValue(col aggregate.Column, value string) interface{} {
	if col.Numeric {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return value
}

// WriteFile renders and saves the workbook. When that fails a one-sheet
// error workbook is written to path, or to the OS temp dir if path is not
// writable. The returned path names whichever file was written; the render
// or save error is returned either way.
func (w *Writer) WriteFile(path string, table *aggregate.Table, summary aggregate.Summary) (string, error) {
	err := w.save(path, table, summary)
	if err == nil {
		return path, nil
	}

	log.Printf("workbook generation failed, writing fallback: %v", err)
	written, fbErr := WriteFallback(path, err)
	if fbErr != nil {
		return "", errors.Join(err, fbErr)
	}
	return written, err
}

func (w *Writer) save(path string, table *aggregate.Table, summary aggregate.Summary) error {
	f, err := w.Render(table, summary)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// WriteFallback saves a workbook with a single Error sheet describing cause
func WriteFallback(path string, cause error) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetError); err != nil {
		return "", err
	}
	if err := f.SetCellValue(SheetError, "A1", fmt.Sprintf("Error al generar el reporte: %v", cause)); err != nil {
		return "", err
	}

	if err := f.SaveAs(path); err == nil {
		return path, nil
	}

	tmpPath := filepath.Join(os.TempDir(), filepath.Base(path))
	if err := f.SaveAs(tmpPath); err != nil {
		return "", fmt.Errorf("failed to save fallback workbook: %w", err)
	}
	return tmpPath, nil
}
