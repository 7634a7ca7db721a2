// Package exception provides the error type shared by the fetch and ingestion runs.
// Every failure that reaches a run boundary is a PipelineError carrying the module
// where it happened and a Kind used for logging and metrics. All kinds are fatal:
// a run is never retried or partially skipped.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindUpstream covers forecast API transport, status and decode failures.
	KindUpstream Kind = "upstream"
	// KindStorage covers blob storage list, read and write failures.
	KindStorage Kind = "storage"
	// KindValidation covers schema coercion and batch validation failures.
	KindValidation Kind = "validation"
	// KindNaming covers object names whose date token cannot be parsed.
	KindNaming Kind = "naming"
	// KindDatabase covers connection, transaction and append failures.
	KindDatabase Kind = "database"
	// KindConfig covers invalid or missing configuration.
	KindConfig Kind = "config"
	// KindSecret covers secret retrieval failures.
	KindSecret Kind = "secret"
	// KindUnknown is reported for errors that are not PipelineErrors.
	KindUnknown Kind = "unknown"
)

// PipelineError is the error type returned across package boundaries.
type PipelineError struct {
	// Module is where the error occurred (e.g., "forecast", "ingest", "storage").
	Module string
	// Kind classifies the failure.
	Kind Kind
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

// New creates a PipelineError.
func New(module string, kind Kind, message string, originalErr error) *PipelineError {
	return &PipelineError{
		Module:      module,
		Kind:        kind,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// Newf creates a PipelineError from a format string.
// If the last argument is an error it is used as the wrapped cause and is not
// passed to fmt.Sprintf.
//
//	Newf("ingest", KindStorage, "failed to read object %s", name, err)
func Newf(module string, kind Kind, format string, a ...interface{}) *PipelineError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return &PipelineError{
		Module:      module,
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Module, e.Kind, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Module, e.Kind, e.Message)
}

// Unwrap returns the original error for errors.Is and errors.As.
func (e *PipelineError) Unwrap() error {
	return e.OriginalErr
}

// KindOf returns the Kind of the outermost PipelineError in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// IsKind reports whether any PipelineError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*PipelineError); ok && pe.Kind == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// ExtractErrorMessage returns the Message of a PipelineError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
