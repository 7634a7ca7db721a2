// Package metrics records run-level metrics for the fetch and ingestion runs.
package metrics

import (
	"context"
	"time"
)

// Run names used as the "run" label.
const (
	RunFetch  = "fetch"
	RunIngest = "ingest"
)

// Run outcomes used as the "status" label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder is an abstract interface for recording pipeline metrics, so that runs do
// not depend on a particular metrics backend.
type Recorder interface {
	// RecordRun records a finished run with its status and duration.
	RecordRun(ctx context.Context, run, status string, duration time.Duration)
	// RecordObjectsWritten records forecast objects uploaded for a grain.
	RecordObjectsWritten(ctx context.Context, grain string, count int)
	// RecordObjectsSelected records objects selected by the ingestion window for a grain.
	RecordObjectsSelected(ctx context.Context, grain string, count int)
	// RecordRowsAppended records rows appended to a grain's table. Rows of a run that
	// rolled back are not recorded.
	RecordRowsAppended(ctx context.Context, grain string, count int64)
}

// NoOpRecorder discards everything. It is used when metrics are disabled and in tests.
type NoOpRecorder struct{}

// NewNoOpRecorder creates a NoOpRecorder.
func NewNoOpRecorder() Recorder { return NoOpRecorder{} }

func (NoOpRecorder) RecordRun(context.Context, string, string, time.Duration) {}
func (NoOpRecorder) RecordObjectsWritten(context.Context, string, int) {}
func (NoOpRecorder) RecordObjectsSelected(context.Context, string, int) {}
func (NoOpRecorder) RecordRowsAppended(context.Context, string, int64) {}

var _ Recorder = NoOpRecorder{}
