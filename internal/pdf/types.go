package pdf

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// TextResult is the plain text of a report plus what the reader learned
// about the file while extracting it
type TextResult struct {
	Path        string       `json:"path"`
	Name        string       `json:"name"`
	Text        string       `json:"text"`
	Pages       int          `json:"pages"`
	Size        int64        `json:"size"`
	ContentType string       `json:"content_type"` // "text", "scanned_images", "mixed", "no_content"
	Truncated   bool         `json:"truncated,omitempty"`
	Metadata    DocumentInfo `json:"metadata"`
}

// DocumentInfo holds the entries of the PDF Info dictionary
type DocumentInfo struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creation_date,omitempty"`
}

// Structure describes the file structure as seen by pdfcpu
type Structure struct {
	Path      string `json:"path"`
	Pages     int    `json:"pages"`
	Version   string `json:"version,omitempty"`
	Encrypted bool   `json:"encrypted"`
}

// DirectoryStats summarizes the PDF files of a folder
type DirectoryStats struct {
	Directory        string `json:"directory"`
	TotalFiles       int    `json:"total_files"`
	TotalSize        int64  `json:"total_size"`
	LargestFileSize  int64  `json:"largest_file_size"`
	LargestFileName  string `json:"largest_file_name"`
	SmallestFileSize int64  `json:"smallest_file_size"`
	SmallestFileName string `json:"smallest_file_name"`
	AverageFileSize  int64  `json:"average_file_size"`
}
