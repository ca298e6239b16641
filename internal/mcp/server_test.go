package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/datacredito-extractor/internal/aggregate"
	"github.com/a3tai/datacredito-extractor/internal/config"
	"github.com/a3tai/datacredito-extractor/internal/document"
	"github.com/a3tai/datacredito-extractor/internal/extract"
	"github.com/a3tai/datacredito-extractor/internal/patterns"
	"github.com/a3tai/datacredito-extractor/internal/pdf"
	"github.com/a3tai/datacredito-extractor/internal/pipeline"
	"github.com/a3tai/datacredito-extractor/internal/workbook"
)

const sampleReport = `Consultado por: JORGE RUIZ S.A.S
Fecha y Hora Consulta: 2024/03/15 10.42 AM
Nombre: ANA MARIA PEREZ GOMEZ
Género: Femenino
Embargos: 1
`

type testEnv struct {
	cfg       *config.Config
	service   *pdf.Service
	processor *document.Processor
	pipeline  *pipeline.Pipeline
	server    *Server
}

// newTestEnv builds a server over a temp input folder holding the given files
func newTestEnv(t *testing.T, files map[string][]byte) *testEnv {
	t.Helper()

	input := t.TempDir()
	for name, data := range files {
		path := filepath.Join(input, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("failed to create dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("failed to create test file %s: %v", name, err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeStdio
	cfg.InputDirectory = input
	cfg.OutputDirectory = filepath.Join(t.TempDir(), "reportes")
	cfg.Version = "1.0.0"
	cfg.ServerName = "test-server"
	cfg.MaxFileSize = 1024 * 1024

	lib, err := patterns.Default()
	if err != nil {
		t.Fatalf("failed to load patterns: %v", err)
	}

	service, err := pdf.NewService(cfg.MaxFileSize, cfg.InputDirectory)
	if err != nil {
		t.Fatalf("Failed to create PDF service: %v", err)
	}
	processor := document.NewProcessor(extract.Registry(lib, extract.DefaultOptions()), service)
	pipe := pipeline.New(service, processor, aggregate.New(lib, cfg.TextDefault),
		workbook.New(lib, workbook.DefaultOptions()), pipeline.Options{})

	server, err := NewServer(cfg, service, processor, pipe)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	return &testEnv{cfg: cfg, service: service, processor: processor, pipeline: pipe, server: server}
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name      string
		cfg       *config.Config
		service   *pdf.Service
		processor *document.Processor
		pipe      *pipeline.Pipeline
		wantErr   string
	}{
		{name: "valid", cfg: env.cfg, service: env.service, processor: env.processor, pipe: env.pipeline},
		{name: "nil config", service: env.service, processor: env.processor, pipe: env.pipeline, wantErr: "config cannot be nil"},
		{name: "nil service", cfg: env.cfg, processor: env.processor, pipe: env.pipeline, wantErr: "pdfService cannot be nil"},
		{name: "nil processor", cfg: env.cfg, service: env.service, pipe: env.pipeline, wantErr: "processor cannot be nil"},
		{name: "nil pipeline", cfg: env.cfg, service: env.service, processor: env.processor, wantErr: "pipeline cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.cfg, tt.service, tt.processor, tt.pipe)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if server.config != tt.cfg {
				t.Error("server config not set correctly")
			}
			if server.pdfService != tt.service {
				t.Error("server pdfService not set correctly")
			}
			if server.mcpServer == nil {
				t.Error("mcpServer should be initialized")
			}
			if server.info == nil {
				t.Error("server info should be initialized")
			}
		})
	}
}

func TestServer_HandleExtractText(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := env.server.handleExtractText(context.Background(), callRequest(map[string]interface{}{
		"text":   sampleReport,
		"source": "ana.txt",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	var decoded struct {
		Fields map[string]string `json:"fields"`
		Meta   document.Metadata `json:"meta"`
	}
	if err := json.Unmarshal([]byte(extractTextFromResult(result)), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}

	if decoded.Meta.Source != "ana.txt" {
		t.Errorf("source = %q, want ana.txt", decoded.Meta.Source)
	}
	if decoded.Fields["nombre"] != "ANA MARIA PEREZ GOMEZ" {
		t.Errorf("nombre = %q", decoded.Fields["nombre"])
	}
	if decoded.Fields["consultado_por"] != "JORGE RUIZ" {
		t.Errorf("consultado_por = %q", decoded.Fields["consultado_por"])
	}
	if !decoded.Meta.Processed {
		t.Error("record should be marked processed")
	}
}

func TestServer_HandleExtractText_DefaultSource(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := env.server.handleExtractText(context.Background(), callRequest(map[string]interface{}{
		"text": sampleReport,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(extractTextFromResult(result), `"source": "texto"`) {
		t.Errorf("expected default source, got: %s", extractTextFromResult(result))
	}
}

func TestServer_HandleExtractFile(t *testing.T) {
	env := newTestEnv(t, map[string][]byte{"roto.pdf": make([]byte, 1024)})

	result, err := env.server.handleExtractFile(context.Background(), callRequest(map[string]interface{}{
		"path":    "roto.pdf",
		"inspect": true,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unreadable reports should yield an error record, got tool error: %s", extractTextFromResult(result))
	}

	var decoded struct {
		Record struct {
			Fields map[string]string `json:"fields"`
			Meta   document.Metadata `json:"meta"`
		} `json:"record"`
		Structure *pdf.Structure `json:"structure"`
	}
	if err := json.Unmarshal([]byte(extractTextFromResult(result)), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}

	if decoded.Record.Meta.Source != "roto.pdf" {
		t.Errorf("source = %q, want roto.pdf", decoded.Record.Meta.Source)
	}
	if decoded.Record.Meta.Error == "" || decoded.Record.Meta.ErrorType == "" {
		t.Errorf("expected error metadata, got %+v", decoded.Record.Meta)
	}
	if len(decoded.Record.Fields) != 0 {
		t.Errorf("expected no fields, got %v", decoded.Record.Fields)
	}
	if decoded.Structure != nil {
		t.Errorf("structure of an invalid file should be omitted, got %+v", decoded.Structure)
	}
}

func TestServer_HandleExtractFile_OutsideInput(t *testing.T) {
	env := newTestEnv(t, nil)

	outside := filepath.Join(t.TempDir(), "other.pdf")
	if err := os.WriteFile(outside, make([]byte, 16), 0o600); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	result, err := env.server.handleExtractFile(context.Background(), callRequest(map[string]interface{}{
		"path": outside,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for a path outside the input directory")
	}
	if !strings.Contains(extractTextFromResult(result), "security validation failed") {
		t.Errorf("unexpected error text: %s", extractTextFromResult(result))
	}
}

func TestServer_HandleProcessFolder(t *testing.T) {
	env := newTestEnv(t, map[string][]byte{
		"a.pdf": make([]byte, 512),
		"b.pdf": make([]byte, 512),
	})

	result, err := env.server.handleProcessFolder(context.Background(), callRequest(map[string]interface{}{
		"output": "lote",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	var decoded struct {
		Result   pipeline.Result    `json:"result"`
		Messages []pipeline.Message `json:"messages"`
	}
	if err := json.Unmarshal([]byte(extractTextFromResult(result)), &decoded); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}

	if decoded.Result.Summary.Total != 2 || decoded.Result.Summary.Failed != 2 {
		t.Errorf("unexpected summary: %+v", decoded.Result.Summary)
	}
	wantDir := filepath.Join(env.cfg.OutputDirectory, "lote")
	if filepath.Dir(decoded.Result.OutputPath) != wantDir {
		t.Errorf("workbook written to %s, want it in %s", decoded.Result.OutputPath, wantDir)
	}
	if _, err := os.Stat(decoded.Result.OutputPath); err != nil {
		t.Errorf("workbook should exist: %v", err)
	}

	last := decoded.Messages[len(decoded.Messages)-1]
	if last.Kind != pipeline.KindCompleted || last.Percent != 100 {
		t.Errorf("last message = %+v, want completed at 100", last)
	}
}

func TestServer_HandleProcessFolder_NoPDFs(t *testing.T) {
	env := newTestEnv(t, map[string][]byte{"notes.txt": []byte("hola")})

	result, err := env.server.handleProcessFolder(context.Background(), callRequest(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error when the folder has no PDFs")
	}

	text := extractTextFromResult(result)
	if !strings.Contains(text, pipeline.NoPDFFilesText) {
		t.Errorf("expected the no-PDF message, got: %s", text)
	}
	if _, err := os.Stat(env.cfg.OutputDirectory); !os.IsNotExist(err) {
		t.Errorf("no output folder should be created, stat err = %v", err)
	}
}

func TestServer_HandleProcessFolder_OutputOutside(t *testing.T) {
	env := newTestEnv(t, map[string][]byte{"a.pdf": make([]byte, 512)})
	outside := filepath.Join(t.TempDir(), "fuera")

	for _, output := range []string{"../../fuera", outside} {
		result, err := env.server.handleProcessFolder(context.Background(), callRequest(map[string]interface{}{
			"output": output,
		}))
		if err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		if !result.IsError {
			t.Errorf("output %q should be rejected", output)
		}
		if !strings.Contains(extractTextFromResult(result), "security validation failed") {
			t.Errorf("unexpected error text: %s", extractTextFromResult(result))
		}
	}
	if _, err := os.Stat(outside); !os.IsNotExist(err) {
		t.Errorf("nothing should be written outside the output folder, stat err = %v", err)
	}
}

func TestServer_HandleListFiles(t *testing.T) {
	env := newTestEnv(t, map[string][]byte{
		"doc1.pdf":       make([]byte, 100),
		"doc2.pdf":       make([]byte, 200),
		"report.txt":     make([]byte, 10),
		"sub/nested.pdf": make([]byte, 50),
	})

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantCount string
		wantNames []string
	}{
		{
			name:      "top level",
			args:      map[string]interface{}{},
			wantCount: "Found 2 PDF file(s)",
			wantNames: []string{"doc1.pdf", "doc2.pdf"},
		},
		{
			name:      "recursive",
			args:      map[string]interface{}{"recursive": true},
			wantCount: "Found 3 PDF file(s)",
			wantNames: []string{"doc1.pdf", "doc2.pdf", "nested.pdf"},
		},
		{
			name:      "subdirectory",
			args:      map[string]interface{}{"directory": "sub"},
			wantCount: "Found 1 PDF file(s)",
			wantNames: []string{"nested.pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.server.handleListFiles(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}

			text := extractTextFromResult(result)
			if !strings.Contains(text, tt.wantCount) {
				t.Errorf("expected %q, got: %s", tt.wantCount, text)
			}
			for _, name := range tt.wantNames {
				if !strings.Contains(text, name) {
					t.Errorf("expected %s in listing, got: %s", name, text)
				}
			}
			if strings.Contains(text, "report.txt") {
				t.Error("non-PDF files should not be listed")
			}
		})
	}
}

func TestServer_HandleListFiles_OutsideInput(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := env.server.handleListFiles(context.Background(), callRequest(map[string]interface{}{
		"directory": "/etc",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !result.IsError {
		t.Error("expected tool error for a directory outside the input directory")
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	env := newTestEnv(t, map[string][]byte{"doc1.pdf": make([]byte, 100)})

	result, err := env.server.handleServerInfo(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	expected := []string{
		"test-server v1.0.0",
		"Input Directory: " + env.cfg.InputDirectory,
		"Output Directory: " + env.cfg.OutputDirectory,
		"1 PDF files found",
		"doc1.pdf",
		"textdefault = SIN INFO",
		"datacredito_process_folder",
		"datacredito_server_info",
	}
	for _, want := range expected {
		if !strings.Contains(text, want) {
			t.Errorf("expected server info to contain %q, got: %s", want, text)
		}
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
	}{
		{name: "extract file without path", handler: env.server.handleExtractFile, args: map[string]interface{}{}},
		{name: "extract file with wrong type", handler: env.server.handleExtractFile, args: map[string]interface{}{"path": 42}},
		{name: "extract text without text", handler: env.server.handleExtractText, args: map[string]interface{}{}},
		{name: "extract text with blank text", handler: env.server.handleExtractText, args: map[string]interface{}{"text": "  \n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler should report problems as tool errors, got %v", err)
			}
			if result == nil || !result.IsError {
				t.Errorf("expected tool error, got %+v", result)
			}
		})
	}
}

func TestFormatFileListing(t *testing.T) {
	env := newTestEnv(t, nil)

	text := env.server.formatFileListing(&pdf.FileListing{
		Directory:  "/in",
		Recursive:  true,
		Files:      []pdf.FileInfo{{Name: "a.pdf", Path: "/in/a.pdf", Size: 10, ModifiedTime: "2024-03-15T10:00:00Z"}},
		TotalCount: 1,
		TotalSize:  10,
	})

	for _, want := range []string{"Found 1 PDF file(s) in /in (recursive)", "1. a.pdf", "Path: /in/a.pdf", "Total size: 10 bytes"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in listing, got: %s", want, text)
		}
	}
}

// Helper function to extract text from MCP result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
