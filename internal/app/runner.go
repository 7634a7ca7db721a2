package app

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/fx"

	"github.com/tigerroll/forecastpipe/internal/forecast"
	"github.com/tigerroll/forecastpipe/internal/ingest"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// ErrRunInProgress is returned when a run is triggered while the same run is active
// in this process.
var ErrRunInProgress = errors.New("run already in progress")

// FetchRunner runs a fetch.
type FetchRunner interface {
	Run(ctx context.Context) (*forecast.Report, error)
}

// IngestRunner runs an ingestion.
type IngestRunner interface {
	Run(ctx context.Context) (*ingest.Report, error)
	SuccessMessage(r *ingest.Report) string
}

// RunnerParams are the runs available to a Runner. A command only wires the runs it needs.
type RunnerParams struct {
	fx.In

	Fetch  *forecast.Job `optional:"true"`
	Ingest *ingest.Job   `optional:"true"`
}

// Runner invokes runs and converts their results into the invocation response
// contracts. At most one run of each kind is active at a time.
type Runner struct {
	fetch    FetchRunner
	ingest   IngestRunner
	fetchMu  sync.Mutex
	ingestMu sync.Mutex
}

// NewRunner creates a Runner from the wired jobs.
func NewRunner(p RunnerParams) *Runner {
	r := &Runner{}
	if p.Fetch != nil {
		r.fetch = p.Fetch
	}
	if p.Ingest != nil {
		r.ingest = p.Ingest
	}
	return r
}

// NewRunnerWith creates a Runner over arbitrary run implementations.
func NewRunnerWith(fetch FetchRunner, ingestRun IngestRunner) *Runner {
	return &Runner{fetch: fetch, ingest: ingestRun}
}

// Fetch performs a fetch run and returns the HTTP status and JSON response.
func (r *Runner) Fetch(ctx context.Context) (int, forecast.Response) {
	if r.fetch == nil {
		return forecast.NewResponse(exception.New(moduleName, exception.KindConfig, "fetch run is not configured", nil))
	}
	if !r.fetchMu.TryLock() {
		logger.Warnf("Fetch trigger rejected: a fetch run is already active.")
		_, resp := forecast.NewResponse(ErrRunInProgress)
		return http.StatusConflict, resp
	}
	defer r.fetchMu.Unlock()

	_, err := r.fetch.Run(ctx)
	return forecast.NewResponse(err)
}

// Ingest performs an ingestion run and returns the HTTP status and plain-text response.
func (r *Runner) Ingest(ctx context.Context) (int, string) {
	if r.ingest == nil {
		return http.StatusInternalServerError, ingest.ErrorMessage(exception.New(moduleName, exception.KindConfig, "ingestion run is not configured", nil))
	}
	if !r.ingestMu.TryLock() {
		logger.Warnf("Ingestion trigger rejected: an ingestion run is already active.")
		return http.StatusConflict, ingest.ErrorMessage(ErrRunInProgress)
	}
	defer r.ingestMu.Unlock()

	report, err := r.ingest.Run(ctx)
	if err != nil {
		return http.StatusInternalServerError, ingest.ErrorMessage(err)
	}
	return http.StatusOK, r.ingest.SuccessMessage(report)
}
