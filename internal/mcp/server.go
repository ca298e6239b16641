package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/datacredito-extractor/internal/config"
	"github.com/a3tai/datacredito-extractor/internal/descriptions"
	"github.com/a3tai/datacredito-extractor/internal/document"
	"github.com/a3tai/datacredito-extractor/internal/pdf"
	"github.com/a3tai/datacredito-extractor/internal/pipeline"
)

// defaultTextSource names records built from raw text
const defaultTextSource = "texto"

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	processor  *document.Processor
	pipeline   *pipeline.Pipeline
	info       *pdf.ServerInfo
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, processor *document.Processor,
	pipe *pipeline.Pipeline,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if pipe == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // the tool list is fixed
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		processor:  processor,
		pipeline:   pipe,
		info:       pdf.NewServerInfo(pdfService),
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	processFolderTool := mcp.NewTool(
		descriptions.ToolProcessFolder,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolProcessFolder)),
		mcp.WithString("input",
			mcp.Description("Folder with the PDF reports (uses the input directory if empty)"),
		),
		mcp.WithString("output",
			mcp.Description("Destination folder for the workbook (uses the output directory if empty)"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Include PDFs in subfolders"),
		),
	)
	s.mcpServer.AddTool(processFolderTool, s.handleProcessFolder)

	extractFileTool := mcp.NewTool(
		descriptions.ToolExtractFile,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolExtractFile)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF report, absolute or relative to the input directory"),
		),
		mcp.WithBoolean("inspect",
			mcp.Description("Also report page count, PDF version and encryption"),
		),
	)
	s.mcpServer.AddTool(extractFileTool, s.handleExtractFile)

	extractTextTool := mcp.NewTool(
		descriptions.ToolExtractText,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolExtractText)),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full text of a report"),
		),
		mcp.WithString("source",
			mcp.Description("Name recorded as the file of the record"),
		),
	)
	s.mcpServer.AddTool(extractTextTool, s.handleExtractText)

	listFilesTool := mcp.NewTool(
		descriptions.ToolListFiles,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolListFiles)),
		mcp.WithString("directory",
			mcp.Description("Directory to list (uses the input directory if empty)"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Include PDFs in subfolders"),
		),
	)
	s.mcpServer.AddTool(listFilesTool, s.handleListFiles)

	serverInfoTool := mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ToolServerInfo)),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// processFolderResponse is the JSON answer of the process folder tool
type processFolderResponse struct {
	Result   *pipeline.Result   `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	Messages []pipeline.Message `json:"messages"`
}

// extractFileResponse is the JSON answer of the extract file tool
type extractFileResponse struct {
	Record    document.Record `json:"record"`
	Structure *pdf.Structure  `json:"structure,omitempty"`
}

// Handler functions
func (s *Server) handleProcessFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := request.GetString("input", "")
	output, err := s.config.ResolveOutput(request.GetString("output", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
	}
	recursive := request.GetBool("recursive", s.config.Recursive)

	if s.config.IsDebug() {
		log.Printf("process folder: input=%q output=%q recursive=%t", input, output, recursive)
	}

	recorder := &pipeline.Recorder{}
	result, err := s.pipeline.WithRecursive(recursive).Run(ctx, input, output, recorder)

	response := processFolderResponse{Result: result, Messages: recorder.Messages()}
	if err != nil {
		response.Error = err.Error()
		text, jsonErr := toJSON(response)
		if jsonErr != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(text), nil
	}

	return jsonResult(response)
}

func (s *Server) handleExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.pdfService.ResolvePath(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("security validation failed: %v", err)), nil
	}

	response := extractFileResponse{Record: s.processor.ProcessFile(ctx, resolved)}

	if request.GetBool("inspect", false) {
		structure, err := s.pdfService.Inspect(resolved)
		if err != nil {
			// a failed inspection does not hide the extracted fields
			if s.config.IsDebug() {
				log.Printf("inspection failed for %s: %v", resolved, err)
			}
		} else {
			response.Structure = structure
		}
	}

	return jsonResult(response)
}

func (s *Server) handleExtractText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text cannot be empty"), nil
	}

	source := request.GetString("source", defaultTextSource)
	return jsonResult(s.processor.Process(text, source))
}

func (s *Server) handleListFiles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	directory := request.GetString("directory", "")
	recursive := request.GetBool("recursive", s.config.Recursive)

	listing, err := s.pdfService.ListFiles(directory, recursive)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatFileListing(listing)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.info.GetServerInfo(ctx, s.config.ServerName, s.config.Version,
		s.config.OutputDirectory, s.config.Settings())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

func toJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode response: %w", err)
	}
	return string(data), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	text, err := toJSON(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Helper functions for formatting results
func (s *Server) formatFileListing(listing *pdf.FileListing) string {
	text := fmt.Sprintf("Found %d PDF file(s) in %s", listing.TotalCount, listing.Directory)
	if listing.Recursive {
		text += " (recursive)"
	}
	text += ":\n\n"

	for i, file := range listing.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n\n", file.ModifiedTime)
	}

	text += fmt.Sprintf("Total size: %d bytes", listing.TotalSize)
	return text
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Input Directory: %s\n", result.InputDirectory)
	text += fmt.Sprintf("💾 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n\n", result.MaxFileSize/(1024*1024))

	if len(result.Files) > 0 {
		text += fmt.Sprintf("📂 Input Reports (%d PDF files found):\n", result.FileCount)
		for i, file := range result.Files {
			if i >= 10 { // first 10 files only
				text += fmt.Sprintf("   ... and %d more files\n", result.FileCount-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Input Reports: No PDF files found in input directory\n\n"
	}

	if len(result.Settings) > 0 {
		text += "⚙️  Settings:\n"
		for _, key := range sortedKeys(result.Settings) {
			text += fmt.Sprintf("  %s = %s\n", key, result.Settings[key])
		}
		text += "\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

// Run serves the MCP protocol over stdin and stdout until ctx is done
func (s *Server) Run(ctx context.Context) error {
	if !s.config.IsStdioMode() {
		return fmt.Errorf("MCP server requires stdio mode, got %q", s.config.Mode)
	}

	if s.config.IsDebug() {
		log.Printf("Starting DataCrédito MCP server in stdio mode")
		log.Printf("Input directory: %s", s.config.InputDirectory)
		log.Printf("Output directory: %s", s.config.OutputDirectory)
	}

	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads JSON-RPC messages from in and writes responses to out. It
// returns nil when in is exhausted or ctx is done.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))

	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
