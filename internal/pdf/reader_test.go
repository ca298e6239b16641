package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pdferrors "github.com/a3tai/datacredito-extractor/internal/pdf/errors"
)

const minimalPDF = "%PDF-1.4\n1 0 obj\n<<\n/Type /Catalog\n/Pages 2 0 R\n>>\nendobj\n2 0 obj\n<<\n/Type /Pages\n/Kids [3 0 R]\n/Count 1\n>>\nendobj\n3 0 obj\n<<\n/Type /Page\n/Parent 2 0 R\n/MediaBox [0 0 612 792]\n>>\nendobj\nxref\n0 4\n0000000000 65535 f \n0000000009 00000 n \n0000000074 00000 n \n0000000120 00000 n \ntrailer\n<<\n/Size 4\n/Root 1 0 R\n>>\nstartxref\n197\n%%EOF"

func TestNewReader(t *testing.T) {
	got := NewReader(1024)
	if got.maxFileSize != 1024 {
		t.Errorf("NewReader() maxFileSize = %v, want %v", got.maxFileSize, 1024)
	}
	if got.maxTextSize != DefaultMaxTextSize {
		t.Errorf("NewReader() maxTextSize = %v, want %v", got.maxTextSize, DefaultMaxTextSize)
	}
	if got.validator == nil || got.inspector == nil {
		t.Error("NewReader() should wire validator and inspector")
	}
}

func TestReader_ExtractText_Errors(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "pdf_reader_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	txtPath := filepath.Join(tempDir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("not a pdf"), 0o600); err != nil {
		t.Fatalf("Failed to create txt file: %v", err)
	}

	emptyPath := filepath.Join(tempDir, "empty.pdf")
	if err := os.WriteFile(emptyPath, nil, 0o600); err != nil {
		t.Fatalf("Failed to create empty file: %v", err)
	}

	garbagePath := filepath.Join(tempDir, "garbage.pdf")
	if err := os.WriteFile(garbagePath, []byte("this is not really a pdf"), 0o600); err != nil {
		t.Fatalf("Failed to create garbage file: %v", err)
	}

	largePath := filepath.Join(tempDir, "large.pdf")
	if err := os.WriteFile(largePath, make([]byte, 2048), 0o600); err != nil {
		t.Fatalf("Failed to create large file: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		wantType    pdferrors.ErrorType
		errContains string
	}{
		{"empty path", "", pdferrors.ErrorTypeFileAccess, "path cannot be empty"},
		{"missing file", filepath.Join(tempDir, "missing.pdf"), pdferrors.ErrorTypeFileAccess, "file does not exist"},
		{"directory", tempDir, pdferrors.ErrorTypeInvalidFile, "path is a directory"},
		{"wrong extension", txtPath, pdferrors.ErrorTypeInvalidFile, "file is not a PDF"},
		{"empty file", emptyPath, pdferrors.ErrorTypeInvalidFile, "file is empty"},
		{"too large", largePath, pdferrors.ErrorTypeInvalidFile, "file too large"},
		{"not a pdf", garbagePath, pdferrors.ErrorTypeInvalidFile, "failed to open PDF"},
	}

	reader := NewReader(1024)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := reader.ExtractText(context.Background(), tt.path)
			if err == nil {
				t.Fatalf("ExtractText() expected error, got result %+v", result)
			}
			if got := pdferrors.TypeOf(err); got != tt.wantType {
				t.Errorf("ExtractText() error type = %v, want %v", got, tt.wantType)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("ExtractText() error = %v, want to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestReader_ExtractText_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(1024).ExtractText(ctx, "whatever.pdf")
	if got := pdferrors.TypeOf(err); got != pdferrors.ErrorTypeCancelled {
		t.Errorf("ExtractText() error type = %v, want %v", got, pdferrors.ErrorTypeCancelled)
	}
}

func TestReader_ExtractText_PageWithoutText(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "blank.pdf")
	if err := os.WriteFile(path, []byte(minimalPDF), 0o600); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	_, err := NewReader(1024*1024).ExtractText(context.Background(), path)
	if err == nil {
		t.Fatal("ExtractText() expected error for a PDF without text")
	}

	switch pdferrors.TypeOf(err) {
	case pdferrors.ErrorTypeNoText, pdferrors.ErrorTypeInvalidFile, pdferrors.ErrorTypeTextExtraction:
	default:
		t.Errorf("ExtractText() unexpected error type %v: %v", pdferrors.TypeOf(err), err)
	}
}
