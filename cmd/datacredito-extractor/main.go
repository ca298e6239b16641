package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/datacredito-extractor/internal/aggregate"
	"github.com/a3tai/datacredito-extractor/internal/config"
	"github.com/a3tai/datacredito-extractor/internal/document"
	"github.com/a3tai/datacredito-extractor/internal/extract"
	"github.com/a3tai/datacredito-extractor/internal/intelligence"
	"github.com/a3tai/datacredito-extractor/internal/httpapi"
	"github.com/a3tai/datacredito-extractor/internal/mcp"
	"github.com/a3tai/datacredito-extractor/internal/patterns"
	"github.com/a3tai/datacredito-extractor/internal/pdf"
	"github.com/a3tai/datacredito-extractor/internal/pipeline"
	"github.com/a3tai/datacredito-extractor/internal/workbook"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// components are the shared building blocks of every mode
type components struct {
	library   *patterns.Library
	service   *pdf.Service
	processor *document.Processor
	pipeline  *pipeline.Pipeline
}

// setupLogging configures logging based on the mode
func setupLogging(cfg *config.Config) {
	switch {
	case cfg.IsStdioMode():
		// stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	case cfg.IsServerMode():
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	default:
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	}
}

// buildComponents wires the pattern library, extractors, PDF service and
// pipeline from the configuration
func buildComponents(cfg *config.Config) (*components, error) {
	lib, err := patterns.Load(cfg.PatternsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	service, err := pdf.NewService(cfg.MaxFileSize, cfg.InputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}

	extractors := extract.Registry(lib, extract.Options{
		AutoFieldCap: cfg.AutoCap,
		AutoValueMin: cfg.AutoValueMin,
		AutoValueMax: cfg.AutoValueMax,
		AutoLabelMax: cfg.AutoLabelMax,
	})
	classifierCfg := intelligence.DefaultConfig()
	classifierCfg.CustomRulesPath = cfg.ReportRulesFile
	classifier, err := intelligence.NewClassifierWithConfig(classifierCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load report rules: %w", err)
	}
	processor := document.NewProcessor(extractors, service).WithClassifier(classifier)

	wbOpts := workbook.DefaultOptions()
	wbOpts.ColMin = cfg.ColMin
	wbOpts.ColMax = cfg.ColMax

	pipe := pipeline.New(service, processor,
		aggregate.New(lib, cfg.TextDefault),
		workbook.New(lib, wbOpts),
		pipeline.Options{Recursive: cfg.Recursive, Debug: cfg.IsDebug()},
	)

	return &components{
		library:   lib,
		service:   service,
		processor: processor,
		pipeline:  pipe,
	}, nil
}

// logSink prints run messages through the standard logger
func logSink(logger *log.Logger) pipeline.Sink {
	return pipeline.SinkFunc(func(m pipeline.Message) {
		switch m.Kind {
		case pipeline.KindProgress:
			logger.Printf("[%3d%%] %s", m.Percent, m.Text)
		case pipeline.KindError:
			logger.Printf("ERROR: %s", m.Text)
		case pipeline.KindCompleted:
			logger.Printf("[%3d%%] %s", m.Percent, m.Text)
			logger.Printf("Archivo generado: %s", m.OutputPath)
		default:
			logger.Print(m.Text)
		}
	})
}

// runBatch processes the input folder once
func runBatch(ctx context.Context, cfg *config.Config, c *components, logger *log.Logger) error {
	logger.Printf("Procesando %s", cfg.InputDirectory)

	result, err := c.pipeline.Run(ctx, cfg.InputDirectory, cfg.OutputDirectory, logSink(logger))
	if err != nil {
		return err
	}

	logger.Printf("Ejecución %s: %d registros, %d con errores, %s",
		result.RunID, result.Summary.Total, result.Summary.Failed, result.Duration)
	return nil
}

// runStdio serves the MCP tools until stdin closes or ctx is done
func runStdio(ctx context.Context, cfg *config.Config, c *components) error {
	server, err := mcp.NewServer(cfg, c.service, c.processor, c.pipeline)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Run(ctx)
}

// runServer serves the HTTP API until ctx is done
func runServer(ctx context.Context, cfg *config.Config, c *components) error {
	server, err := httpapi.NewServer(cfg, c.service, c.processor, c.pipeline)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	return server.Run(ctx)
}

func run(ctx context.Context, cfg *config.Config) error {
	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	if cfg.IsDebug() && !cfg.IsStdioMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
		log.Printf("Pattern library version: %s", c.library.Version())
	}

	switch {
	case cfg.IsStdioMode():
		return runStdio(ctx, cfg, c)
	case cfg.IsServerMode():
		return runServer(ctx, cfg, c)
	default:
		return runBatch(ctx, cfg, c, log.Default())
	}
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if ctx.Err() != nil {
			log.Printf("Interrupted: %v", err)
		} else {
			log.Printf("Error: %v", err)
		}
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "DataCrédito Extractor\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
