package forecast

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tigerroll/forecastpipe/internal/metrics"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
	"github.com/tigerroll/forecastpipe/internal/telemetry"
)

// Response is the JSON body returned by a fetch invocation.
type Response struct {
	Status    string `json:"status"`
	InProcess string `json:"in_process,omitempty"`
	Output    string `json:"output,omitempty"`
}

// NewResponse converts a run result into the invocation response and HTTP status.
func NewResponse(err error) (int, Response) {
	if err != nil {
		return http.StatusInternalServerError, Response{Status: "failure", Output: err.Error()}
	}
	return http.StatusOK, Response{Status: "success", InProcess: "success"}
}

// Report summarizes a successful fetch run.
type Report struct {
	RunID   string
	FetchID int64
	// Objects lists the distinct object names written, in write order.
	Objects []string
	// Writes counts uploads, including hourly overwrites.
	Writes int
}

// Job performs one fetch run: request, build, write.
type Job struct {
	client   Client
	builder  *Builder
	writer   *ObjectWriter
	recorder metrics.Recorder
	now      func() time.Time
}

// NewJob creates a fetch Job.
func NewJob(client Client, builder *Builder, writer *ObjectWriter, recorder metrics.Recorder) *Job {
	if recorder == nil {
		recorder = metrics.NewNoOpRecorder()
	}
	return &Job{client: client, builder: builder, writer: writer, recorder: recorder, now: time.Now}
}

// Run fetches one snapshot and writes the current, daily and hourly objects.
// Hourly records share one name, so each hourly write replaces the previous one.
func (j *Job) Run(ctx context.Context) (report *Report, err error) {
	started := j.now()
	report = &Report{RunID: uuid.NewString(), FetchID: started.Unix()}
	log := logger.WithFields(logger.Fields{"run_id": report.RunID, "run": metrics.RunFetch})

	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "forecast.fetch")
	span.SetAttributes(attribute.String("run_id", report.RunID), attribute.Int64("fetch_id", report.FetchID))
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
			log.WithField("kind", exception.KindOf(err)).Errorf("Fetch run failed: %v", err)
		}
		j.recorder.RecordRun(ctx, metrics.RunFetch, status, j.now().Sub(started))
		span.End()
	}()

	log.Infof("Fetch run started (fetch id %d).", report.FetchID)
	snap, err := j.client.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := j.builder.Build(snap, report.FetchID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	written := make(map[Grain]int)
	for _, rec := range recs.All() {
		name, err := j.writer.Write(ctx, report.FetchID, rec)
		if err != nil {
			log.WithField("grain", rec.Grain).Errorf("Write of object %s failed.", ObjectName(report.FetchID, rec.Grain))
			return nil, err
		}
		report.Writes++
		written[rec.Grain]++
		if !seen[name] {
			seen[name] = true
			report.Objects = append(report.Objects, name)
		}
	}
	for _, g := range Grains {
		j.recorder.RecordObjectsWritten(ctx, string(g), written[g])
	}

	log.Infof("Fetch run completed: %d objects, %d writes.", len(report.Objects), report.Writes)
	return report, nil
}
