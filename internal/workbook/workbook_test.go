package workbook

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/datacredito-extractor/internal/aggregate"
	"github.com/a3tai/datacredito-extractor/internal/document"
	"github.com/a3tai/datacredito-extractor/internal/patterns"
)

func newWriter(t *testing.T) (*Writer, *patterns.Library) {
	t.Helper()
	lib, err := patterns.Default()
	require.NoError(t, err)
	return New(lib, Options{}), lib
}

func sampleTable(t *testing.T, lib *patterns.Library) (*aggregate.Table, aggregate.Summary) {
	t.Helper()
	records := []document.Record{
		document.NewRecord(map[string]string{
			"nombre":                              "BETO",
			"genero":                              "Masculino",
			"creditos_vigentes_sector_financiero": "3",
			"creditos_vigentes_sector_real":       "1",
		}, document.Metadata{Source: "beto-1.pdf"}),
		document.NewRecord(map[string]string{
			"nombre":                       "ANA",
			"antiguedad_sector_financiero": "2015-04-01",
			"auto_numero_cuenta":           "12345-6789",
		}, document.Metadata{Source: "ana.pdf"}),
		document.NewRecord(map[string]string{
			"nombre": "BETO",
		}, document.Metadata{Source: "beto-2.pdf"}),
	}

	table, err := aggregate.New(lib, "").Aggregate(records)
	require.NoError(t, err)
	summary := aggregate.Summarize("run-42", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), records)
	return table, summary
}

func TestNew_Defaults(t *testing.T) {
	lib, err := patterns.Default()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{"zero", Options{}, DefaultOptions()},
		{"custom", Options{ColMin: 5, ColMax: 10, MaxCellRunes: 50}, Options{ColMin: 5, ColMax: 10, MaxCellRunes: 50}},
		{"inverted bounds", Options{ColMin: 30, ColMax: 10, MaxCellRunes: 50}, Options{ColMin: 30, ColMax: 30, MaxCellRunes: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(lib, tt.in).opts)
		})
	}
}

func TestWriteFile_DataSheet(t *testing.T) {
	w, lib := newWriter(t)
	table, summary := sampleTable(t, lib)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	written, err := w.WriteFile(path, table, summary)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetData, SheetSummary, SheetDiagnostics}, f.GetSheetList())

	// nombre genero archivo total procesado | tenure | auto | vigentes x2
	assert.Equal(t, []string{
		"nombre", "genero", "archivo", "total_campos_extraidos", "procesado",
		"antiguedad_sector_financiero", "auto_numero_cuenta",
		"creditos_vigentes_sector_financiero", "creditos_vigentes_sector_real",
	}, table.Keys())

	headers := map[string]string{
		"A1": "Nombre",
		"B1": "Género",
		"C1": "Archivo",
		"D1": "Total Campos Extraídos",
		"E1": "Procesado",
		"F1": "Antigüedad por Sector",
		"F2": "Sector Financiero",
		"G1": "Número Cuenta",
		"H1": "Créditos Vigentes",
		"H2": "Sector Financiero",
		"I2": "Sector Real",
	}
	for cell, want := range headers {
		got, err := f.GetCellValue(SheetData, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	merges, err := f.GetMergeCells(SheetData)
	require.NoError(t, err)
	var ranges []string
	for _, m := range merges {
		ranges = append(ranges, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	assert.ElementsMatch(t, []string{"A1:A2", "B1:B2", "C1:C2", "D1:D2", "E1:E2", "G1:G2", "H1:I1"}, ranges)

	rows, err := f.GetRows(SheetData)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"ANA", "SIN INFO", "ana.pdf", "3", "Sí", "2015-04-01", "12345-6789", "0", "0"}, rows[2])
	assert.Equal(t, []string{"BETO", "Masculino", "beto-1.pdf", "4", "Sí", "SIN INFO", "SIN INFO", "3", "1"}, rows[3])
	assert.Equal(t, "beto-2.pdf", rows[4][2])
}

func TestWriteFile_SummarySheet(t *testing.T) {
	w, lib := newWriter(t)
	table, summary := sampleTable(t, lib)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	_, err := w.WriteFile(path, table, summary)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)

	values := make(map[string]string)
	var flat []string
	for _, row := range rows {
		if len(row) >= 2 {
			values[row[0]] = row[1]
		}
		flat = append(flat, strings.Join(row, "|"))
	}

	assert.Equal(t, summaryTitle, rows[0][0])
	assert.Equal(t, "run-42", values["ID de ejecución"])
	assert.Equal(t, "2024-03-15 10:30:00", values["Fecha de generación"])
	assert.Equal(t, "3", values["Total de registros"])
	assert.Equal(t, "3", values["Procesados correctamente"])
	assert.Equal(t, "0", values["Con errores"])
	assert.Equal(t, "100.0%", values["Porcentaje de éxito"])
	assert.Contains(t, flat, "Ninguno")
	assert.Contains(t, flat, "ana.pdf|3")
}

func TestWriteFile_SummaryFailures(t *testing.T) {
	w, lib := newWriter(t)
	records := []document.Record{
		document.NewErrorRecord("roto.pdf", "/in/roto.pdf", errors.New("failed to open PDF"), "INVALID_FILE"),
	}
	table, err := aggregate.New(lib, "").Aggregate(records)
	require.NoError(t, err)

	f, err := w.Render(table, aggregate.Summarize("run", time.Now(), records))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	var flat []string
	for _, row := range rows {
		flat = append(flat, strings.Join(row, "|"))
	}
	assert.Contains(t, flat, "Archivo|Error")
	assert.Contains(t, flat, "roto.pdf|failed to open PDF")
	assert.NotContains(t, flat, "Ninguno")
}

func TestWriteFile_SummaryListsEmptyRecords(t *testing.T) {
	w, lib := newWriter(t)
	records := []document.Record{
		document.NewRecord(map[string]string{"nombre": "ANA"}, document.Metadata{Source: "ana.pdf"}),
		document.NewRecord(nil, document.Metadata{Source: "escaneado.pdf"}),
	}
	table, err := aggregate.New(lib, "").Aggregate(records)
	require.NoError(t, err)

	summary := aggregate.Summarize("run", time.Now(), records)
	require.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, summary.Failed)

	f, err := w.Render(table, summary)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	var flat []string
	for _, row := range rows {
		flat = append(flat, strings.Join(row, "|"))
	}
	assert.Contains(t, flat, "escaneado.pdf|"+aggregate.NoFieldsReason)
	assert.NotContains(t, flat, "Ninguno")
}

func TestRender_Diagnostics(t *testing.T) {
	w, lib := newWriter(t)
	table, summary := sampleTable(t, lib)

	f, err := w.Render(table, summary)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetDiagnostics)
	require.NoError(t, err)
	require.Len(t, rows, len(table.Columns)+1)
	assert.Equal(t, []string{"Campo", "Encabezado", "Registros con valor", "Total", "Tasa de éxito (%)"}, rows[0])

	byKey := make(map[string][]string)
	for _, row := range rows[1:] {
		byKey[row[0]] = row
	}
	assert.Equal(t, []string{"genero", "Género", "1", "3", "33.3"}, byKey["genero"])
	assert.Equal(t, []string{"nombre", "Nombre", "3", "3", "100.0"}, byKey["nombre"])
	assert.Equal(t, "Créditos Vigentes / Sector Real", byKey["creditos_vigentes_sector_real"][1])
}

func TestRender_NilTable(t *testing.T) {
	w, _ := newWriter(t)
	_, err := w.Render(nil, aggregate.Summary{})
	assert.Error(t, err)
}

func TestWriteFile_Fallback(t *testing.T) {
	w, _ := newWriter(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")

	written, err := w.WriteFile(path, nil, aggregate.Summary{})
	require.Error(t, err)
	assert.Equal(t, path, written)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetError}, f.GetSheetList())
	msg, err := f.GetCellValue(SheetError, "A1")
	require.NoError(t, err)
	assert.Contains(t, msg, "nil table")
}

func TestWriteFallback_TempDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	path := filepath.Join(t.TempDir(), "missing", "dir", "report.xlsx")
	written, err := WriteFallback(path, errors.New("disk full"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "report.xlsx"), written)

	_, err = os.Stat(written)
	assert.NoError(t, err)
}

func TestLayout_BandsAndWidths(t *testing.T) {
	lib, err := patterns.Default()
	require.NoError(t, err)
	w := New(lib, Options{ColMin: 12, ColMax: 25, MaxCellRunes: 20})

	long := strings.Repeat("x", 60)
	records := []document.Record{
		document.NewRecord(map[string]string{"nombre": "ANA", "ocupacion": long}, document.Metadata{Source: "a.pdf"}),
		document.NewRecord(map[string]string{"nombre": "ANA"}, document.Metadata{Source: "b.pdf"}),
		document.NewRecord(map[string]string{"nombre": "BETO"}, document.Metadata{Source: "c.pdf"}),
		document.NewRecord(map[string]string{"nombre": "CARLA"}, document.Metadata{Source: "d.pdf"}),
	}
	table, err := aggregate.New(lib, "").Aggregate(records)
	require.NoError(t, err)

	l := w.buildLayout(table)
	assert.Equal(t, []int{0, 0, 1, 0}, l.rowBands)

	col := table.ColumnIndex("ocupacion")
	require.GreaterOrEqual(t, col, 0)
	assert.Equal(t, 20, utf8.RuneCountInString(l.cells[0][col]))
	assert.True(t, strings.HasSuffix(l.cells[0][col], "..."))
	assert.Equal(t, 20.0, l.widths[col])

	assert.Equal(t, 12.0, l.widths[table.ColumnIndex("procesado")])
}

func TestCleanHeader(t *testing.T) {
	lib, err := patterns.Default()
	require.NoError(t, err)

	tests := []struct {
		key  string
		want string
	}{
		{"auto_numero_cuenta", "Número Cuenta"},
		{"auto_direccion_residencia", "Dirección Residencia"},
		{"ultimos_reportes", "Últimos Reportes"},
		{"saldo", "Saldo"},
		{"auto_creditos_activos", "Créditos Activos"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanHeader(lib, tt.key))
		})
	}
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 7, cellValue(aggregate.Column{Key: "embargos", Numeric: true}, "7"))
	assert.Equal(t, "SIN INFO", cellValue(aggregate.Column{Key: "embargos", Numeric: true}, "SIN INFO"))
	assert.Equal(t, "7", cellValue(aggregate.Column{Key: "genero"}, "7"))
}
