package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Search handles PDF discovery in an input folder
type Search struct{}

// NewSearch creates a new PDF search handler
func NewSearch() *Search {
	return &Search{}
}

// FindPDFs lists the PDF files of a directory sorted by name. Only the top
// level is read unless recursive is set. Oversized files are still listed so
// the run reports them as failed documents instead of skipping them silently.
func (s *Search) FindPDFs(directory string, recursive bool) ([]FileInfo, error) {
	if directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	info, err := os.Stat(directory)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directory)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", directory)
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	var pdfFiles []FileInfo
	if recursive {
		pdfFiles, err = s.walk(absDirectory)
	} else {
		pdfFiles, err = s.list(absDirectory)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(pdfFiles, func(i, j int) bool {
		if pdfFiles[i].Name != pdfFiles[j].Name {
			return pdfFiles[i].Name < pdfFiles[j].Name
		}
		return pdfFiles[i].Path < pdfFiles[j].Path
	})

	return pdfFiles, nil
}

func (s *Search) list(directory string) ([]FileInfo, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	var pdfFiles []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !isPDFFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		pdfFiles = append(pdfFiles, newFileInfo(filepath.Join(directory, entry.Name()), info))
	}
	return pdfFiles, nil
}

func (s *Search) walk(directory string) ([]FileInfo, error) {
	var pdfFiles []FileInfo

	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// Continue walking even if we encounter an error with a specific file
			return nil
		}

		if d.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(d.Name(), ".") && path != directory {
				return filepath.SkipDir
			}
			return nil
		}

		if !isPDFFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		pdfFiles = append(pdfFiles, newFileInfo(path, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return pdfFiles, nil
}

// DirectoryStats summarizes size information of the PDFs a run would read
func (s *Search) DirectoryStats(directory string, recursive bool) (*DirectoryStats, error) {
	files, err := s.FindPDFs(directory, recursive)
	if err != nil {
		return nil, err
	}

	stats := &DirectoryStats{Directory: directory, TotalFiles: len(files)}
	for i, f := range files {
		stats.TotalSize += f.Size
		if f.Size > stats.LargestFileSize {
			stats.LargestFileSize = f.Size
			stats.LargestFileName = f.Name
		}
		if i == 0 || f.Size < stats.SmallestFileSize {
			stats.SmallestFileSize = f.Size
			stats.SmallestFileName = f.Name
		}
	}
	if len(files) > 0 {
		stats.AverageFileSize = stats.TotalSize / int64(len(files))
	}

	return stats, nil
}

func newFileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:         path,
		Name:         info.Name(),
		Size:         info.Size(),
		ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
	}
}
