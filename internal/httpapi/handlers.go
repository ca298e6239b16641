package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/a3tai/datacredito-extractor/internal/pipeline"
)

const (
	defaultTextSource = "texto"
	sseBuffer         = 16
	maxRequestBody    = 1 << 20
)

// processRequest is the body of POST /api/v1/process
type processRequest struct {
	Input     string `json:"input"`
	Output    string `json:"output"`
	Recursive *bool  `json:"recursive,omitempty"`
}

// processResponse is the JSON answer of a process run
type processResponse struct {
	Result   *pipeline.Result   `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	Messages []pipeline.Message `json:"messages"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.config.Version,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	recursive := s.config.Recursive
	if req.Recursive != nil {
		recursive = *req.Recursive
	}
	output, err := s.config.ResolveOutput(req.Output)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pipe := s.pipeline.WithRecursive(recursive)

	if wantsEventStream(r) {
		s.streamProcess(w, r, pipe, req.Input, output)
		return
	}

	recorder := &pipeline.Recorder{}
	result, err := pipe.Run(r.Context(), req.Input, output, recorder)
	resp := processResponse{Result: result, Messages: recorder.Messages()}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// streamProcess runs the pipeline and forwards each message as a
// Server-Sent Event. The run ends with a result or failed event.
func (s *Server) streamProcess(w http.ResponseWriter, r *http.Request, pipe *pipeline.Pipeline, input, output string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sink := pipeline.NewChannelSink(ctx, sseBuffer)
	var (
		result *pipeline.Result
		runErr error
	)
	go func() {
		defer sink.Close()
		result, runErr = pipe.Run(ctx, input, output, sink)
	}()

	for m := range sink.Messages() {
		if err := writeEvent(w, string(m.Kind), m); err != nil {
			// client went away, stop the run at the next document
			cancel()
			continue
		}
		flusher.Flush()
	}

	// the channel is closed only after Run returned
	if runErr != nil {
		_ = writeEvent(w, "failed", processResponse{Result: result, Error: runErr.Error()})
	} else {
		_ = writeEvent(w, "result", processResponse{Result: result})
	}
	flusher.Flush()
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxFileSize)
	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("failed to read body: %w", err))
		return
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("text cannot be empty"))
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = defaultTextSource
	}

	writeJSON(w, http.StatusOK, s.processor.Process(text, source))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	recursive := s.config.Recursive
	if v := r.URL.Query().Get("recursive"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid recursive value %q", v))
			return
		}
		recursive = parsed
	}

	listing, err := s.pdfService.ListFiles(r.URL.Query().Get("directory"), recursive)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// statusFor maps a failed run to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoPDFFiles):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrInputFolder):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
