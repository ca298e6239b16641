package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/datacredito-extractor/internal/aggregate"
)

const summaryTitle = "Resumen de Procesamiento DataCrédito"

// writeSummary fills the run overview sheet
func (w *Writer) writeSummary(f *excelize.File, st styles, s aggregate.Summary) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}

	rows := [][]interface{}{
		{summaryTitle},
		{},
		{"ID de ejecución", s.RunID},
		{"Fecha de generación", s.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Total de registros", s.Total},
		{"Procesados correctamente", s.Succeeded},
		{"Con errores", s.Failed},
		{"Porcentaje de éxito", fmt.Sprintf("%.1f%%", s.SuccessPercent)},
		{},
		{"Archivos con errores"},
	}

	bold := map[int]bool{1: true, 10: true}

	if len(s.Failures) == 0 {
		rows = append(rows, []interface{}{"Ninguno"})
	} else {
		bold[len(rows)+1] = true
		rows = append(rows, []interface{}{"Archivo", "Error"})
		for _, failure := range s.Failures {
			rows = append(rows, []interface{}{failure.File, failure.Error})
		}
	}

	rows = append(rows, []interface{}{}, []interface{}{"Campos extraídos por archivo"})
	bold[len(rows)] = true
	bold[len(rows)+1] = true
	rows = append(rows, []interface{}{"Archivo", "Campos"})
	for _, fc := range s.FileCounts {
		rows = append(rows, []interface{}{fc.File, fc.Fields})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
		if bold[i+1] {
			last, err := excelize.CoordinatesToCellName(len(row), i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(SheetSummary, cell, last, st.bold); err != nil {
				return err
			}
		}
	}

	return f.SetColWidth(SheetSummary, "A", "B", 40)
}

// diagnosticsHeader is row 1 of the technical sheet
var diagnosticsHeader = []interface{}{"Campo", "Encabezado", "Registros con valor", "Total", "Tasa de éxito (%)"}

// writeDiagnostics lists the fill rate of every column
func (w *Writer) writeDiagnostics(f *excelize.File, st styles, table *aggregate.Table) error {
	if _, err := f.NewSheet(SheetDiagnostics); err != nil {
		return err
	}

	header := diagnosticsHeader
	if err := f.SetSheetRow(SheetDiagnostics, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetDiagnostics, "A1", "E1", st.headerPrimary); err != nil {
		return err
	}

	labels := w.columnLabels(table)
	for i, stat := range aggregate.FieldStats(table) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			stat.Key,
			labels[stat.Key],
			stat.Count,
			stat.Total,
			fmt.Sprintf("%.1f", stat.Percent),
		}
		if err := f.SetSheetRow(SheetDiagnostics, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetDiagnostics, "A", "B", 35); err != nil {
		return err
	}
	return f.SetColWidth(SheetDiagnostics, "C", "E", 20)
}

// columnLabels maps each column key to the header shown for it on the data
// sheet. Grouped columns combine band and sub-label.
func (w *Writer) columnLabels(table *aggregate.Table) map[string]string {
	l := w.buildLayout(table)
	labels := make(map[string]string, len(table.Columns))
	for _, b := range l.bands {
		for c := b.First; c <= b.Last; c++ {
			key := table.Columns[c].Key
			if b.Grouped {
				labels[key] = b.Label + " / " + l.subLabels[c]
				continue
			}
			labels[key] = b.Label
		}
	}
	return labels
}
