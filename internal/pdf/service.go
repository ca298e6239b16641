package pdf

import (
	"context"
	"fmt"

	pdferrors "github.com/a3tai/datacredito-extractor/internal/pdf/errors"
	"github.com/a3tai/datacredito-extractor/internal/pdf/security"
)

// Service handles PDF file operations by orchestrating the PDF components
// behind a path validator bound to the input folder
type Service struct {
	maxFileSize   int64
	reader        *Reader
	validator     *Validator
	search        *Search
	inspector     *Inspector
	pathValidator *security.PathValidator
}

// FileListing is the result of listing an input folder
type FileListing struct {
	Directory  string     `json:"directory"`
	Recursive  bool       `json:"recursive"`
	Files      []FileInfo `json:"files"`
	TotalCount int        `json:"total_count"`
	TotalSize  int64      `json:"total_size"`
}

// NewService creates a new PDF service with all components
func NewService(maxFileSize int64, configuredDirectory string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		reader:        NewReader(maxFileSize),
		validator:     NewValidator(maxFileSize),
		search:        NewSearch(),
		inspector:     NewInspector(),
		pathValidator: pathValidator,
	}, nil
}

// ExtractText reads a PDF inside the configured directory. Relative paths
// are resolved against that directory.
func (s *Service) ExtractText(ctx context.Context, path string) (*TextResult, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeFileAccess,
			fmt.Errorf("security validation failed: %w", err)).WithFile(path)
	}
	return s.reader.ExtractText(ctx, resolved)
}

// FindPDFs lists the PDFs of a directory inside the configured one. An
// empty directory means the configured directory.
func (s *Service) FindPDFs(directory string, recursive bool) ([]FileInfo, error) {
	resolved, err := s.pathValidator.ValidateDirectory(directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.search.FindPDFs(resolved, recursive)
}

// ListFiles returns the PDFs of a directory with their total size
func (s *Service) ListFiles(directory string, recursive bool) (*FileListing, error) {
	files, err := s.FindPDFs(directory, recursive)
	if err != nil {
		return nil, err
	}

	resolved, _ := s.pathValidator.Resolve(directory)
	listing := &FileListing{
		Directory:  resolved,
		Recursive:  recursive,
		Files:      files,
		TotalCount: len(files),
	}
	if listing.Files == nil {
		listing.Files = []FileInfo{}
	}
	for _, f := range files {
		listing.TotalSize += f.Size
	}
	return listing, nil
}

// DirectoryStats summarizes file sizes of a directory inside the configured one
func (s *Service) DirectoryStats(directory string, recursive bool) (*DirectoryStats, error) {
	resolved, err := s.pathValidator.ValidateDirectory(directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.search.DirectoryStats(resolved, recursive)
}

// Inspect reads the structure of a PDF with pdfcpu
func (s *Service) Inspect(path string) (*Structure, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if _, err := s.validator.Stat(resolved); err != nil {
		return nil, err
	}
	return s.inspector.Inspect(resolved)
}

// IsValidPDF performs a quick validation check on a file
func (s *Service) IsValidPDF(path string) bool {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return false
	}
	return s.validator.IsValidPDF(resolved)
}

// ResolvePath returns the absolute form of a path inside the configured directory
func (s *Service) ResolvePath(path string) (string, error) {
	return s.pathValidator.Resolve(path)
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// GetConfiguredDirectory returns the absolute input directory
func (s *Service) GetConfiguredDirectory() string {
	return s.pathValidator.Root()
}
