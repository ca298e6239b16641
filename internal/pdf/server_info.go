package pdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/a3tai/datacredito-extractor/internal/descriptions"
)

// Server info defaults
const (
	DefaultInfoCacheTTL  = 5 * time.Minute
	DefaultInfoFileLimit = 100
)

// DirectoryCache provides TTL-based caching for directory listings
type DirectoryCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

type cacheEntry struct {
	files      []FileInfo
	lastUpdate time.Time
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns cached files and their age when the entry is still valid
func (c *DirectoryCache) Get(path string) ([]FileInfo, time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists {
		return nil, 0, false
	}

	age := c.now().Sub(entry.lastUpdate)
	if age > c.ttl {
		return nil, 0, false
	}
	return entry.files, age, true
}

// Set stores directory contents in cache
func (c *DirectoryCache) Set(path string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = cacheEntry{files: files, lastUpdate: c.now()}
}

// Clear removes expired entries from cache
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for path, entry := range c.entries {
		if now.Sub(entry.lastUpdate) > c.ttl {
			delete(c.entries, path)
		}
	}
}

// Len returns the number of cached directories, expired or not
func (c *DirectoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ToolInfo describes one MCP tool for the server info response
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// ServerInfoResult is returned by the server info tool
type ServerInfoResult struct {
	ServerName      string            `json:"server_name"`
	Version         string            `json:"version"`
	InputDirectory  string            `json:"input_directory"`
	OutputDirectory string            `json:"output_directory"`
	MaxFileSize     int64             `json:"max_file_size"`
	Settings        map[string]string `json:"settings,omitempty"`
	AvailableTools  []ToolInfo        `json:"available_tools"`
	Files           []FileInfo        `json:"files"`
	FileCount       int               `json:"file_count"`
	Truncated       bool              `json:"truncated"`
	FromCache       bool              `json:"from_cache"`
	UsageGuidance   string            `json:"usage_guidance"`
}

// ServerInfo builds server info responses with a cached view of the input
// directory
type ServerInfo struct {
	service   *Service
	cache     *DirectoryCache
	fileLimit int
}

// NewServerInfo creates a server info provider for service
func NewServerInfo(service *Service) *ServerInfo {
	return &ServerInfo{
		service:   service,
		cache:     NewDirectoryCache(DefaultInfoCacheTTL),
		fileLimit: DefaultInfoFileLimit,
	}
}

// GetServerInfo reports configuration, tools and up to fileLimit reports of
// the input directory
func (p *ServerInfo) GetServerInfo(ctx context.Context, serverName, version, outputDirectory string,
	settings map[string]string,
) (*ServerInfoResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := p.service.GetConfiguredDirectory()
	result := &ServerInfoResult{
		ServerName:      serverName,
		Version:         version,
		InputDirectory:  dir,
		OutputDirectory: outputDirectory,
		MaxFileSize:     p.service.GetMaxFileSize(),
		Settings:        settings,
		AvailableTools:  AvailableTools(),
		UsageGuidance:   p.usageGuidance(),
	}

	files, _, cached := p.cache.Get(dir)
	if !cached {
		var err error
		files, err = p.service.FindPDFs("", false)
		if err != nil {
			// an unreadable input directory still yields the static info
			files = []FileInfo{}
		}
		p.cache.Set(dir, files)
	}

	result.FromCache = cached
	result.FileCount = len(files)
	if p.fileLimit > 0 && len(files) > p.fileLimit {
		files = files[:p.fileLimit]
		result.Truncated = true
	}
	result.Files = files

	return result, nil
}

// ClearCache drops expired directory listings
func (p *ServerInfo) ClearCache() {
	p.cache.Clear()
}

// AvailableTools lists the MCP tools with usage notes
func AvailableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        descriptions.ToolProcessFolder,
			Description: descriptions.GetToolDescription(descriptions.ToolProcessFolder),
			Usage:       "Use this tool to turn a folder of reports into one Excel workbook.",
			Parameters:  "input (optional): folder inside the input directory, output (optional): destination folder, recursive (optional): include subfolders",
		},
		{
			Name:        descriptions.ToolExtractFile,
			Description: descriptions.GetToolDescription(descriptions.ToolExtractFile),
			Usage:       "Use this tool to see the fields of a single report.",
			Parameters:  "path (required): report path, absolute or relative to the input directory",
		},
		{
			Name:        descriptions.ToolExtractText,
			Description: descriptions.GetToolDescription(descriptions.ToolExtractText),
			Usage:       "Use this tool when the report text is already available.",
			Parameters:  "text (required): full report text, source (optional): name recorded as the file",
		},
		{
			Name:        descriptions.ToolListFiles,
			Description: descriptions.GetToolDescription(descriptions.ToolListFiles),
			Usage:       "Use this tool to check which reports a run will read.",
			Parameters:  "directory (optional): folder inside the input directory, recursive (optional): include subfolders",
		},
		{
			Name:        descriptions.ToolServerInfo,
			Description: descriptions.GetToolDescription(descriptions.ToolServerInfo),
			Usage:       "Use this tool first to learn the configured directories and limits.",
			Parameters:  "none",
		},
	}
}

func (p *ServerInfo) usageGuidance() string {
	maxFileSizeMB := p.service.GetMaxFileSize() / (1024 * 1024)

	return fmt.Sprintf(`DataCrédito extractor usage guide:

1. DISCOVER:
   - Use '%s' to list the reports of the input directory

2. CHECK SINGLE REPORTS:
   - Use '%s' to see the fields of one report
   - Use '%s' to test extraction on raw text

3. PROCESS:
   - Use '%s' to write DataCredito_<timestamp>.xlsx with one row per report
   - Failed reports are listed in the Resumen sheet and never stop the run

IMPORTANT NOTES:
- Paths must lie inside %s
- The server can handle files up to %dMB
- Scanned reports without a text layer cannot be read (no OCR)`,
		descriptions.ToolListFiles,
		descriptions.ToolExtractFile,
		descriptions.ToolExtractText,
		descriptions.ToolProcessFolder,
		p.service.GetConfiguredDirectory(),
		maxFileSizeMB)
}
