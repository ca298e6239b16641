package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/datacredito-extractor/internal/pdf/security"
)

// ErrOutputOutside is returned for requested output folders that leave the
// configured output directory
var ErrOutputOutside = errors.New("output folder must stay inside the configured output directory")

const (
	// Mode constants
	ModeBatch  = "batch"
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultOutputDir    = "reportes"
	DefaultColMin       = 12
	DefaultColMax       = 25
	DefaultAutoCap      = 20
	DefaultAutoValueMin = 5
	DefaultAutoValueMax = 100
	DefaultAutoLabelMax = 50
	DefaultTextValue    = "SIN INFO"

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "DATACREDITO"
)

// ErrVersionRequested is returned by LoadFromFlags when --version was passed
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the extractor
type Config struct {
	// Server configuration
	Mode string // "batch", "stdio" or "server"
	Host string
	Port int

	// Folders
	InputDirectory  string
	OutputDirectory string
	Recursive       bool

	// PatternsFile optionally overrides entries of the embedded pattern library
	PatternsFile    string
	// ReportRulesFile adds YAML rules to the report type classifier
	ReportRulesFile string

	// Workbook presentation
	ColMin      int
	ColMax      int
	TextDefault string

	// Free-form label detection bounds
	AutoCap      int
	AutoValueMin int
	AutoValueMax int
	AutoLabelMax int

	// Application configuration
	ConfigFile  string
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:            ModeBatch,
		Host:            DefaultHost,
		Port:            DefaultPort,
		InputDirectory:  currentDir,
		OutputDirectory: filepath.Join(currentDir, DefaultOutputDir),
		ColMin:          DefaultColMin,
		ColMax:          DefaultColMax,
		TextDefault:     DefaultTextValue,
		AutoCap:         DefaultAutoCap,
		AutoValueMin:    DefaultAutoValueMin,
		AutoValueMax:    DefaultAutoValueMax,
		AutoLabelMax:    DefaultAutoLabelMax,
		Version:         "1.0.0",
		ServerName:      "datacredito-extractor",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags, environment and the optional
// config file and returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if err := readConfigFile(); err != nil {
		return nil, err
	}

	populateConfigFromViper(cfg)

	// Expand paths if needed
	for _, p := range []*string{&cfg.InputDirectory, &cfg.OutputDirectory, &cfg.PatternsFile, &cfg.ReportRulesFile} {
		if *p == "" {
			continue
		}
		if expandedPath, err := filepath.Abs(*p); err == nil {
			*p = expandedPath
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("input", cfg.InputDirectory)
	viper.SetDefault("output", cfg.OutputDirectory)
	viper.SetDefault("recursive", cfg.Recursive)
	viper.SetDefault("patterns", cfg.PatternsFile)
	viper.SetDefault("reportrules", cfg.ReportRulesFile)
	viper.SetDefault("colmin", cfg.ColMin)
	viper.SetDefault("colmax", cfg.ColMax)
	viper.SetDefault("textdefault", cfg.TextDefault)
	viper.SetDefault("autocap", cfg.AutoCap)
	viper.SetDefault("autovaluemin", cfg.AutoValueMin)
	viper.SetDefault("autovaluemax", cfg.AutoValueMax)
	viper.SetDefault("autolabelmax", cfg.AutoLabelMax)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'batch' to process a folder once, 'stdio' for MCP standard I/O, 'server' for HTTP API")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("input", cfg.InputDirectory, "Folder containing DataCrédito PDF reports")
	pflag.String("output", cfg.OutputDirectory, "Folder where the Excel workbook is written")
	pflag.Bool("recursive", cfg.Recursive, "Also read PDFs in subfolders of the input folder")
	pflag.String("patterns", cfg.PatternsFile, "YAML file overriding entries of the built-in pattern library")
	pflag.String("reportrules", cfg.ReportRulesFile, "YAML file with extra report classification rules")
	pflag.Int("colmin", cfg.ColMin, "Minimum column width of the data sheet")
	pflag.Int("colmax", cfg.ColMax, "Maximum column width of the data sheet")
	pflag.String("textdefault", cfg.TextDefault, "Value written for missing text fields")
	pflag.Int("autocap", cfg.AutoCap, "Maximum number of free-form fields detected per document")
	pflag.Int("autovaluemin", cfg.AutoValueMin, "Minimum length of a free-form field value")
	pflag.Int("autovaluemax", cfg.AutoValueMax, "Maximum length of a free-form field value")
	pflag.Int("autolabelmax", cfg.AutoLabelMax, "Free-form labels must be shorter than this")
	pflag.String("config", "", "Optional YAML or JSON file with the same keys as the flags")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range []string{
		"mode", "host", "port", "input", "output", "recursive", "patterns", "reportrules",
		"colmin", "colmax", "textdefault",
		"autocap", "autovaluemin", "autovaluemax", "autolabelmax",
		"config", "loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// readConfigFile loads the file named by --config or DATACREDITO_CONFIG
func readConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	return nil
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nDataCrédito extractor - turns a folder of credit reports into one Excel workbook\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input=/reportes/pdf --output=/reportes/excel   # one batch run\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio --input=/reportes/pdf                # MCP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081         # HTTP API\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_MODE, %s_INPUT, %s_OUTPUT, %s_PATTERNS, ...\n", EnvPrefix, EnvPrefix, EnvPrefix, EnvPrefix)
		fmt.Fprintf(os.Stderr, "  every flag can be set as %s_<FLAG NAME IN UPPER CASE>\n", EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = strings.ToLower(viper.GetString("mode"))
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.InputDirectory = viper.GetString("input")
	cfg.OutputDirectory = viper.GetString("output")
	cfg.Recursive = viper.GetBool("recursive")
	cfg.PatternsFile = viper.GetString("patterns")
	cfg.ReportRulesFile = viper.GetString("reportrules")
	cfg.ColMin = viper.GetInt("colmin")
	cfg.ColMax = viper.GetInt("colmax")
	cfg.TextDefault = viper.GetString("textdefault")
	cfg.AutoCap = viper.GetInt("autocap")
	cfg.AutoValueMin = viper.GetInt("autovaluemin")
	cfg.AutoValueMax = viper.GetInt("autovaluemax")
	cfg.AutoLabelMax = viper.GetInt("autolabelmax")
	cfg.ConfigFile = viper.GetString("config")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeBatch && c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be one of 'batch', 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate input directory
	if c.InputDirectory == "" {
		return errors.New("input directory cannot be empty")
	}
	info, err := os.Stat(c.InputDirectory)
	if os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s", c.InputDirectory)
	} else if err != nil {
		return fmt.Errorf("cannot access input directory %s: %w", c.InputDirectory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input path is not a directory: %s", c.InputDirectory)
	}

	// Output directory is created when missing
	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}
	if err := os.MkdirAll(c.OutputDirectory, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", c.OutputDirectory, err)
	}

	if c.PatternsFile != "" {
		if _, err := os.Stat(c.PatternsFile); err != nil {
			return fmt.Errorf("cannot access patterns file %s: %w", c.PatternsFile, err)
		}
	}
	if c.ReportRulesFile != "" {
		if _, err := os.Stat(c.ReportRulesFile); err != nil {
			return fmt.Errorf("cannot access report rules file %s: %w", c.ReportRulesFile, err)
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.ColMin <= 0 || c.ColMax < c.ColMin {
		return fmt.Errorf("column widths must satisfy 0 < colmin <= colmax, got %d and %d", c.ColMin, c.ColMax)
	}

	if c.AutoCap < 0 {
		return errors.New("autocap cannot be negative")
	}
	if c.AutoValueMin < 0 || c.AutoValueMax < c.AutoValueMin {
		return fmt.Errorf("free-form value bounds must satisfy 0 <= min <= max, got %d and %d",
			c.AutoValueMin, c.AutoValueMax)
	}
	if c.AutoLabelMax <= 0 {
		return errors.New("autolabelmax must be positive")
	}

	if strings.TrimSpace(c.TextDefault) == "" {
		return errors.New("text default cannot be empty")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ResolveOutput places a requested output folder under the configured one.
// Empty means the configured folder. Relative paths are joined to it; any
// result outside it, absolute or through "..", fails with ErrOutputOutside.
func (c *Config) ResolveOutput(dir string) (string, error) {
	validator, err := security.NewPathValidator(c.OutputDirectory)
	if err != nil {
		return "", fmt.Errorf("invalid output directory: %w", err)
	}

	resolved, err := validator.Resolve(strings.TrimSpace(dir))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOutputOutside, err)
	}
	return resolved, nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Input: %s, Output: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.InputDirectory, c.OutputDirectory, c.LogLevel, c.MaxFileSize)
}

// Settings returns the tunable values as strings for status responses
func (c *Config) Settings() map[string]string {
	return map[string]string{
		"mode":         c.Mode,
		"recursive":    fmt.Sprintf("%t", c.Recursive),
		"patterns":     c.PatternsFile,
		"reportrules":  c.ReportRulesFile,
		"colmin":       fmt.Sprintf("%d", c.ColMin),
		"colmax":       fmt.Sprintf("%d", c.ColMax),
		"textdefault":  c.TextDefault,
		"autocap":      fmt.Sprintf("%d", c.AutoCap),
		"autovaluemin": fmt.Sprintf("%d", c.AutoValueMin),
		"autovaluemax": fmt.Sprintf("%d", c.AutoValueMax),
		"autolabelmax": fmt.Sprintf("%d", c.AutoLabelMax),
	}
}

// IsBatchMode returns true if the binary processes one folder and exits
func (c *Config) IsBatchMode() bool {
	return c.Mode == ModeBatch
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
