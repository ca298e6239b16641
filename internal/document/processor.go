package document

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"unicode/utf8"

	"github.com/a3tai/datacredito-extractor/internal/extract"
	"github.com/a3tai/datacredito-extractor/internal/intelligence"
	"github.com/a3tai/datacredito-extractor/internal/pdf"
	pdferrors "github.com/a3tai/datacredito-extractor/internal/pdf/errors"
)

// TextSource yields the plain text of a report file
type TextSource interface {
	ExtractText(ctx context.Context, path string) (*pdf.TextResult, error)
}

// Classifier tells which kind of report a text comes from
type Classifier interface {
	Classify(ctx context.Context, text string) (*intelligence.Result, error)
}

// Processor runs the extractor registry over documents
type Processor struct {
	extractors []extract.Extractor
	source     TextSource
	classifier Classifier
}

// NewProcessor creates a processor. source may be nil when only Process is used.
func NewProcessor(extractors []extract.Extractor, source TextSource) *Processor {
	return &Processor{
		extractors: extractors,
		source:     source,
	}
}

// WithClassifier tags every record with the report type detected by c
func (p *Processor) WithClassifier(c Classifier) *Processor {
	p.classifier = c
	return p
}

// Process extracts every field from text. A panicking extractor turns the
// document into an error record.
func (p *Processor) Process(text, source string) Record {
	return p.process(context.Background(), text, Metadata{Source: source})
}

// ProcessFile reads a file through the text source and processes it. Read
// failures produce an error record carrying the verbatim message.
func (p *Processor) ProcessFile(ctx context.Context, path string) Record {
	name := filepath.Base(path)

	if p.source == nil {
		return NewErrorRecord(name, path, fmt.Errorf("no text source configured"), pdferrors.ErrorTypeUnknown.String())
	}

	result, err := p.readText(ctx, path)
	if err != nil {
		return NewErrorRecord(name, path, err, pdferrors.TypeOf(err).String())
	}

	return p.process(ctx, result.Text, Metadata{
		Source: name,
		Path:   path,
		Pages:  result.Pages,
	})
}

// readText calls the text source and converts its panics into errors
func (p *Processor) readText(ctx context.Context, path string) (result *pdf.TextResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("text source panicked on %s: %v", path, rec)
			result = nil
			err = pdferrors.NewProcessingError(pdferrors.ErrorTypeTextExtraction,
				fmt.Sprintf("text extraction panicked: %v", rec)).WithFile(path)
		}
	}()

	result, err = p.source.ExtractText(ctx, path)
	if err == nil && result == nil {
		err = pdferrors.NewProcessingError(pdferrors.ErrorTypeNoText,
			"no text content could be extracted from PDF").WithFile(path)
	}
	return result, err
}

func (p *Processor) process(ctx context.Context, text string, meta Metadata) (record Record) {
	meta.CharCount = utf8.RuneCountInString(text)
	p.classify(ctx, text, &meta)

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("extractor panicked on %s: %v", meta.Source, rec)
			perr := pdferrors.NewProcessingError(pdferrors.ErrorTypeExtractorPanic,
				fmt.Sprintf("extractor panicked: %v", rec)).WithFile(meta.Path)
			meta.Error = perr.Error()
			meta.ErrorType = perr.Type.String()
			record = NewRecord(nil, meta)
		}
	}()

	fields := extract.Run(p.extractors, text, meta.Source)
	return NewRecord(fields, meta)
}

// classify fills the report type. A failed classification leaves it empty.
func (p *Processor) classify(ctx context.Context, text string, meta *Metadata) {
	if p.classifier == nil {
		return
	}
	result, err := p.classifier.Classify(ctx, text)
	if err != nil {
		log.Printf("classification failed for %s: %v", meta.Source, err)
		return
	}
	meta.ReportType = string(result.Type)
	meta.ReportConfidence = result.Confidence
}
