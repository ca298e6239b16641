// Package pipeline runs one extraction batch: discover PDFs, extract a
// record per document, aggregate and write the workbook
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/datacredito-extractor/internal/aggregate"
	"github.com/a3tai/datacredito-extractor/internal/document"
	"github.com/a3tai/datacredito-extractor/internal/intelligence"
	"github.com/a3tai/datacredito-extractor/internal/pdf"
	"github.com/a3tai/datacredito-extractor/internal/workbook"
)

var (
	// ErrNoPDFFiles is returned when the input folder holds no PDF
	ErrNoPDFFiles = errors.New("no PDF files found in input folder")
	// ErrInputFolder wraps failures to list the input folder
	ErrInputFolder = errors.New("failed to read input folder")
)

// User-facing texts
const (
	NoPDFFilesText  = "No se encontraron archivos PDF en la carpeta"
	CancelledText   = "Proceso cancelado por el usuario"
	OutputPrefix    = "DataCredito_"
	OutputTimestamp = "20060102_150405"
)

// Progress checkpoints
const (
	percentDocuments = 90
	percentWorkbook  = 95
	percentDone      = 100
)

// Finder discovers the PDFs of a folder in processing order
type Finder interface {
	FindPDFs(directory string, recursive bool) ([]pdf.FileInfo, error)
}

// FileProcessor turns one file into a record
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) document.Record
}

// Options tunes a pipeline
type Options struct {
	Recursive bool
	Debug     bool
}

// Pipeline wires the components of a run
type Pipeline struct {
	finder     Finder
	processor  FileProcessor
	aggregator *aggregate.Aggregator
	writer     *workbook.Writer
	opts       Options
	now        func() time.Time
	newRunID   func() string
}

// Result describes a finished run
type Result struct {
	RunID      string            `json:"run_id"`
	OutputPath string            `json:"output_path"`
	Summary    aggregate.Summary `json:"summary"`
	Columns    int               `json:"columns"`
	Duration   string            `json:"duration"`
}

// New creates a pipeline
func New(finder Finder, processor FileProcessor, aggregator *aggregate.Aggregator,
	writer *workbook.Writer, opts Options,
) *Pipeline {
	return &Pipeline{
		finder:     finder,
		processor:  processor,
		aggregator: aggregator,
		writer:     writer,
		opts:       opts,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

// WithRecursive returns a copy of the pipeline with recursive discovery
// switched on or off
func (p *Pipeline) WithRecursive(recursive bool) *Pipeline {
	c := *p
	c.opts.Recursive = recursive
	return &c
}

// OutputName returns the workbook file name for a run started at t
func OutputName(t time.Time) string {
	return OutputPrefix + t.Format(OutputTimestamp) + ".xlsx"
}

// maxOutputAttempts bounds the suffixes tried when a workbook name is taken
const maxOutputAttempts = 100

// reserveOutput creates an empty file for the run's workbook, adding a
// numeric suffix when a run started in the same second already took the
// name. Files are created exclusively so concurrent runs never share a path.
func reserveOutput(dir string, started time.Time) (string, error) {
	base := strings.TrimSuffix(OutputName(started), ".xlsx")
	for i := 1; i <= maxOutputAttempts; i++ {
		name := base + ".xlsx"
		if i > 1 {
			name = fmt.Sprintf("%s_%d.xlsx", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("no free workbook name for %s after %d attempts", base, maxOutputAttempts)
}

// Run processes every PDF of input and writes one workbook into output.
// Messages go to sink in order. Failed documents never abort the run; no
// PDFs, an unreadable input folder or cancellation do, and in those cases no
// workbook is written.
func (p *Pipeline) Run(ctx context.Context, input, output string, sink Sink) (*Result, error) {
	if sink == nil {
		sink = Discard
	}
	started := p.now()
	runID := p.newRunID()

	fail := func(err error, text string) (*Result, error) {
		sink.Send(Message{Kind: KindError, Text: text})
		return nil, err
	}

	files, err := p.finder.FindPDFs(input, p.opts.Recursive)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrInputFolder, err),
			fmt.Sprintf("No se pudo leer la carpeta de entrada: %v", err))
	}
	if len(files) == 0 {
		return fail(ErrNoPDFFiles, NoPDFFilesText)
	}

	sink.Send(Message{Kind: KindLog, Text: fmt.Sprintf("Encontrados %d archivos PDF", len(files))})
	sink.Send(Message{Kind: KindProgress, Percent: 0, Text: "Iniciando procesamiento"})

	records := make([]document.Record, 0, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("run cancelled after %d of %d documents: %w", i, len(files), err), CancelledText)
		}

		rec := p.processor.ProcessFile(ctx, file.Path)
		records = append(records, rec)

		meta := rec.Meta()
		if meta.Error != "" {
			sink.Send(Message{Kind: KindLog, Text: fmt.Sprintf("Error en %s: %s", file.Name, meta.Error)})
		} else if p.opts.Debug {
			log.Printf("%s: %d fields", file.Name, meta.NonEmptyCount)
		}
		if meta.ReportType != "" && meta.ReportType != string(intelligence.ReportTypeDataCredito) {
			sink.Send(Message{Kind: KindLog, Text: fmt.Sprintf("Advertencia: %s no parece un reporte DataCrédito (%s)",
				file.Name, intelligence.ReportType(meta.ReportType).DisplayName())})
		}

		sink.Send(Message{
			Kind:    KindProgress,
			Percent: (i + 1) * percentDocuments / len(files),
			Text:    fmt.Sprintf("Procesado %d de %d: %s", i+1, len(files), file.Name),
		})
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("run cancelled before writing workbook: %w", err), CancelledText)
	}

	table, err := p.aggregator.Aggregate(records)
	if err != nil {
		return fail(fmt.Errorf("aggregation failed: %w", err),
			fmt.Sprintf("Error interno al consolidar registros: %v", err))
	}

	sink.Send(Message{Kind: KindProgress, Percent: percentWorkbook, Text: "Generando archivo Excel"})

	if err := os.MkdirAll(output, 0o750); err != nil {
		return fail(fmt.Errorf("failed to create output folder: %w", err),
			fmt.Sprintf("No se pudo crear la carpeta de salida: %v", err))
	}

	summary := aggregate.Summarize(runID, started, records)
	path, err := reserveOutput(output, started)
	if err != nil {
		return fail(fmt.Errorf("failed to reserve workbook name: %w", err),
			fmt.Sprintf("No se pudo crear el archivo de salida: %v", err))
	}

	written, err := p.writer.WriteFile(path, table, summary)
	if written != path {
		_ = os.Remove(path)
	}
	result := &Result{
		RunID:      runID,
		OutputPath: written,
		Summary:    summary,
		Columns:    len(table.Columns),
		Duration:   p.now().Sub(started).Round(time.Millisecond).String(),
	}
	if err != nil {
		text := fmt.Sprintf("Error al generar el archivo Excel: %v", err)
		if written != "" {
			text += fmt.Sprintf(" (reporte de error en %s)", written)
		}
		sink.Send(Message{Kind: KindError, Text: text, OutputPath: written})
		return result, fmt.Errorf("failed to write workbook: %w", err)
	}

	sink.Send(Message{
		Kind:       KindCompleted,
		Percent:    percentDone,
		Text:       fmt.Sprintf("Proceso completado: %d de %d documentos procesados", summary.Succeeded, summary.Total),
		OutputPath: written,
	})

	return result, nil
}
