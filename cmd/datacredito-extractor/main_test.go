package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/a3tai/datacredito-extractor/internal/config"
	"github.com/a3tai/datacredito-extractor/internal/pipeline"
	"github.com/a3tai/datacredito-extractor/internal/workbook"
)

const testVersion = "1.2.3"

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	tests := []struct {
		name      string
		version   string
		buildTime string
		gitCommit string
	}{
		{name: "build flags", version: testVersion, buildTime: "2024-03-15_10:42:05", gitCommit: "abc123"},
		{name: "defaults", version: "dev", buildTime: "unknown", gitCommit: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, buildTime, gitCommit = tt.version, tt.buildTime, tt.gitCommit

			var buf bytes.Buffer
			printVersion(&buf)

			output := buf.String()
			for _, expected := range []string{
				"DataCrédito Extractor",
				"Version: " + tt.version,
				"Build Time: " + tt.buildTime,
				"Git Commit: " + tt.gitCommit,
				"Built with:",
			} {
				assert.Contains(t, output, expected)
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	tests := []struct {
		name       string
		mode       string
		logLevel   string
		wantWriter io.Writer
		wantFlags  int
	}{
		{name: "stdio silenced", mode: config.ModeStdio, logLevel: "info", wantWriter: io.Discard, wantFlags: originalFlags},
		{name: "stdio debug", mode: config.ModeStdio, logLevel: "debug", wantWriter: os.Stderr, wantFlags: originalFlags},
		{name: "server", mode: config.ModeServer, logLevel: "info", wantWriter: os.Stderr, wantFlags: log.LstdFlags | log.Lshortfile},
		{name: "batch", mode: config.ModeBatch, logLevel: "info", wantWriter: os.Stderr, wantFlags: log.LstdFlags},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log.SetOutput(originalOutput)
			log.SetFlags(originalFlags)

			setupLogging(&config.Config{Mode: tt.mode, LogLevel: tt.logLevel})

			assert.Equal(t, tt.wantWriter, log.Writer())
			assert.Equal(t, tt.wantFlags, log.Flags())
		})
	}
}

func testConfig(t *testing.T, files map[string][]byte) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.InputDirectory = t.TempDir()
	cfg.OutputDirectory = filepath.Join(t.TempDir(), "reportes")
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.InputDirectory, name), data, 0o600))
	}
	return cfg
}

func TestBuildComponents(t *testing.T) {
	cfg := testConfig(t, nil)

	c, err := buildComponents(cfg)
	require.NoError(t, err)
	assert.NotNil(t, c.library)
	assert.NotNil(t, c.service)
	assert.NotNil(t, c.processor)
	assert.NotNil(t, c.pipeline)
	assert.Equal(t, cfg.InputDirectory, c.service.GetConfiguredDirectory())
}

func TestBuildComponents_BadPatterns(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.PatternsFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := buildComponents(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load patterns")
}

func TestBuildComponents_BadReportRules(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.ReportRulesFile = filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(cfg.ReportRulesFile, []byte("rules:\n  - name: x\n    report_type: invoice\n"), 0o600))

	_, err := buildComponents(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load report rules")
}

func TestRunBatch(t *testing.T) {
	cfg := testConfig(t, map[string][]byte{
		"a.pdf": make([]byte, 64),
		"b.pdf": make([]byte, 64),
	})
	c, err := buildComponents(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	require.NoError(t, runBatch(context.Background(), cfg, c, logger))

	entries, err := os.ReadDir(cfg.OutputDirectory)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasPrefix(name, pipeline.OutputPrefix))
	assert.True(t, strings.HasSuffix(name, ".xlsx"))

	f, err := excelize.OpenFile(filepath.Join(cfg.OutputDirectory, name))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{workbook.SheetData, workbook.SheetSummary, workbook.SheetDiagnostics}, f.GetSheetList())

	output := buf.String()
	assert.Contains(t, output, "Encontrados 2 archivos PDF")
	assert.Contains(t, output, "[100%]")
	assert.Contains(t, output, "Archivo generado: ")
	assert.Contains(t, output, "2 registros, 2 con errores")
}

func TestRunBatch_NoPDFs(t *testing.T) {
	cfg := testConfig(t, map[string][]byte{"notes.txt": []byte("hola")})
	c, err := buildComponents(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = runBatch(context.Background(), cfg, c, log.New(&buf, "", 0))
	assert.ErrorIs(t, err, pipeline.ErrNoPDFFiles)
	assert.Contains(t, buf.String(), "ERROR: "+pipeline.NoPDFFilesText)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := logSink(log.New(&buf, "", 0))

	sink.Send(pipeline.Message{Kind: pipeline.KindLog, Text: "Encontrados 1 archivos PDF"})
	sink.Send(pipeline.Message{Kind: pipeline.KindProgress, Percent: 5, Text: "Procesado 1 de 1"})
	sink.Send(pipeline.Message{Kind: pipeline.KindError, Text: "falló"})
	sink.Send(pipeline.Message{Kind: pipeline.KindCompleted, Percent: 100, Text: "listo", OutputPath: "/out/x.xlsx"})

	assert.Equal(t, strings.Join([]string{
		"Encontrados 1 archivos PDF",
		"[  5%] Procesado 1 de 1",
		"ERROR: falló",
		"[100%] listo",
		"Archivo generado: /out/x.xlsx",
		"",
	}, "\n"), buf.String())
}

func TestRun_StdioRequiresComponents(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.Mode = config.ModeStdio
	cfg.PatternsFile = filepath.Join(t.TempDir(), "missing.yaml")

	err := run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load patterns")
}
