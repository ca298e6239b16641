package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ProcessingError describes why a report could not be turned into a record
type ProcessingError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Context     string    `json:"context,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
	FilePath    string    `json:"file_path,omitempty"`
	Err         error     `json:"-"`
}

// ErrorType represents different categories of processing errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeFileAccess
	ErrorTypeInvalidFile
	ErrorTypeTextExtraction
	ErrorTypeNoText
	ErrorTypeExtractorPanic
	ErrorTypeCancelled
)

// Error implements the error interface. The message is kept verbatim so it
// can be shown to the operator as is.
func (e *ProcessingError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Context)
	}
	return e.Message
}

// Unwrap exposes the underlying cause
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeFileAccess:
		return "FILE_ACCESS"
	case ErrorTypeInvalidFile:
		return "INVALID_FILE"
	case ErrorTypeTextExtraction:
		return "TEXT_EXTRACTION"
	case ErrorTypeNoText:
		return "NO_TEXT"
	case ErrorTypeExtractorPanic:
		return "EXTRACTOR_PANIC"
	case ErrorTypeCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether the batch can go on after this error.
// Only cancellation stops a run.
func (et ErrorType) IsRecoverable() bool {
	return et != ErrorTypeCancelled
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(errorType ErrorType, message string) *ProcessingError {
	return &ProcessingError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// WrapError wraps a standard error as a ProcessingError
func WrapError(errorType ErrorType, err error) *ProcessingError {
	pe := NewProcessingError(errorType, err.Error())
	pe.Err = err
	return pe
}

// WithContext adds context to an existing ProcessingError
func (e *ProcessingError) WithContext(context string) *ProcessingError {
	e.Context = context
	return e
}

// WithFile adds file path information to an existing ProcessingError
func (e *ProcessingError) WithFile(filePath string) *ProcessingError {
	e.FilePath = filePath
	return e
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var pe *ProcessingError
	if stderrors.As(err, &pe) {
		return pe.Type
	}
	return ErrorTypeUnknown
}
