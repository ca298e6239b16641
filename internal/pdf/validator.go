package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdferrors "github.com/a3tai/datacredito-extractor/internal/pdf/errors"
)

// Validator screens report files before they reach the parser. Its failures
// are typed so the batch can classify them per document.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator. A maxFileSize of zero disables the size limit.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// Stat returns the file info of a report candidate, or a FILE_ACCESS or
// INVALID_FILE error
func (v *Validator) Stat(path string) (os.FileInfo, error) {
	if path == "" {
		return nil, pdferrors.NewProcessingError(pdferrors.ErrorTypeFileAccess, "path cannot be empty")
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, pdferrors.NewProcessingError(pdferrors.ErrorTypeFileAccess,
			fmt.Sprintf("file does not exist: %s", path)).WithFile(path)
	case err != nil:
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeFileAccess,
			fmt.Errorf("cannot access file: %w", err)).WithFile(path)
	}

	if err := v.Check(path, info); err != nil {
		return nil, err
	}
	return info, nil
}

// Check applies the kind, extension and size rules to an already stat'ed file
func (v *Validator) Check(path string, info os.FileInfo) error {
	var msg string
	switch {
	case info.IsDir():
		msg = fmt.Sprintf("path is a directory, not a file: %s", path)
	case !isPDFFile(path):
		msg = fmt.Sprintf("file is not a PDF: %s", path)
	case info.Size() == 0:
		msg = fmt.Sprintf("file is empty: %s", path)
	case v.maxFileSize > 0 && info.Size() > v.maxFileSize:
		msg = fmt.Sprintf("file too large: %d bytes (max: %d bytes)", info.Size(), v.maxFileSize)
	default:
		return nil
	}
	return pdferrors.NewProcessingError(pdferrors.ErrorTypeInvalidFile, msg).WithFile(path)
}

// IsValidPDF reports whether path passes Stat and opens with the parser
func (v *Validator) IsValidPDF(path string) bool {
	if _, err := v.Stat(path); err != nil {
		return false
	}
	f, _, err := openPDF(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func isPDFFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
