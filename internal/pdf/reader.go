package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	pdferrors "github.com/a3tai/datacredito-extractor/internal/pdf/errors"
)

// PageBreak separates the text of consecutive pages
const PageBreak = "\n\n--- Page Break ---\n\n"

// DefaultMaxTextSize caps the extracted text of one document
const DefaultMaxTextSize = 10 * 1024 * 1024

// Reader handles PDF file reading operations
type Reader struct {
	maxFileSize int64
	maxTextSize int
	validator   *Validator
	inspector   *Inspector
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: DefaultMaxTextSize,
		validator:   NewValidator(maxFileSize),
		inspector:   NewInspector(),
	}
}

// ExtractText returns the plain text of every page of a PDF
func (r *Reader) ExtractText(ctx context.Context, path string) (*TextResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeCancelled, err).WithFile(path)
	}

	fileInfo, err := r.validator.Stat(path)
	if err != nil {
		return nil, err
	}

	f, pdfReader, err := openPDF(path)
	if err != nil {
		pe := pdferrors.WrapError(pdferrors.ErrorTypeInvalidFile, fmt.Errorf("failed to open PDF: %w", err)).WithFile(path)
		if info, inspectErr := r.inspector.Inspect(path); inspectErr == nil && info.Encrypted {
			pe.WithContext("document is encrypted")
		}
		return nil, pe
	}
	defer f.Close()

	text, truncated, err := r.extractTextContent(pdfReader)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeTextExtraction, err).WithFile(path)
	}

	contentType := r.analyzeContentType(text, pdfReader)
	if strings.TrimSpace(strings.ReplaceAll(text, strings.TrimSpace(PageBreak), "")) == "" {
		return nil, pdferrors.NewProcessingError(pdferrors.ErrorTypeNoText,
			"no text content could be extracted from PDF").WithFile(path).WithContext(contentType)
	}

	return &TextResult{
		Path:        path,
		Name:        filepath.Base(path),
		Text:        text,
		Pages:       pdfReader.NumPage(),
		Size:        fileInfo.Size(),
		ContentType: contentType,
		Truncated:   truncated,
		Metadata:    extractMetadata(pdfReader),
	}, nil
}

// openPDF guards pdf.Open, which panics on some malformed cross-reference tables
func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	return pdf.Open(path)
}

// extractTextContent concatenates page text up to maxTextSize
func (r *Reader) extractTextContent(pdfReader *pdf.Reader) (text string, truncated bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to extract text content: %v", rec)
		}
	}()

	var builder strings.Builder
	totalLength := 0

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// Continue with other pages even if one fails
			continue
		}

		if totalLength+len(content) > r.maxTextSize {
			remaining := r.maxTextSize - totalLength
			if remaining > 0 {
				builder.WriteString(content[:remaining])
			}
			truncated = true
			break
		}

		builder.WriteString(content)
		totalLength += len(content)

		if pageNum < pdfReader.NumPage() {
			builder.WriteString(PageBreak)
		}
	}

	return builder.String(), truncated, nil
}

// analyzeContentType tells text reports apart from scanned ones, which need OCR
func (r *Reader) analyzeContentType(textContent string, pdfReader *pdf.Reader) string {
	const minMeaningfulTextLength = 50

	cleanText := strings.TrimSpace(strings.ReplaceAll(textContent, strings.TrimSpace(PageBreak), ""))
	hasImages := r.countImages(pdfReader) > 0

	switch {
	case len(cleanText) < minMeaningfulTextLength && hasImages:
		return "scanned_images"
	case len(cleanText) < minMeaningfulTextLength:
		return "no_content"
	case hasImages:
		return "mixed"
	default:
		return "text"
	}
}

// countImages scans the XObject resources of every page
func (r *Reader) countImages(pdfReader *pdf.Reader) int {
	count := 0
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		count += countImagesOnPage(pdfReader, pageNum)
	}
	return count
}

func countImagesOnPage(pdfReader *pdf.Reader, pageNum int) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return 0
	}

	xObjects := page.V.Key("Resources").Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		if xObjects.Key(key).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}
