package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	"github.com/tigerroll/forecastpipe/internal/adapter/storage"
	"github.com/tigerroll/forecastpipe/internal/metrics"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
	"github.com/tigerroll/forecastpipe/internal/telemetry"
)

// Options configures an ingestion Job.
type Options struct {
	// Bucket is the storage bucket; empty uses the connection's default.
	Bucket       string
	Schemas      []Schema
	LookbackDays int
	Location     *time.Location
	BulkSize     int
	Validator    Validator
	// StoreLabel names the relational store in the success message, e.g. "PostgreSQL".
	StoreLabel string
}

// GrainReport summarizes one grain of a run.
type GrainReport struct {
	Grain   string
	Table   string
	Objects []string
	Rows    int64
	// TableRows is the table's row count inside the run's transaction after the
	// appends. Zero when no object was selected.
	TableRows int64
}

// Report summarizes a committed ingestion run.
type Report struct {
	RunID  string
	Cutoff int
	Grains []GrainReport
}

// Objects returns the number of objects loaded across all grains.
func (r *Report) Objects() int {
	n := 0
	for _, g := range r.Grains {
		n += len(g.Objects)
	}
	return n
}

// Rows returns the number of rows appended across all grains.
func (r *Report) Rows() int64 {
	var n int64
	for _, g := range r.Grains {
		n += g.Rows
	}
	return n
}

// Job performs one ingestion run inside a single transaction.
type Job struct {
	store     storage.Executor
	txManager database.TransactionManager
	opts      Options
	recorder  metrics.Recorder
	now       func() time.Time
}

// NewJob creates an ingestion Job.
func NewJob(store storage.Executor, txManager database.TransactionManager, opts Options, recorder metrics.Recorder) *Job {
	if recorder == nil {
		recorder = metrics.NewNoOpRecorder()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Job{store: store, txManager: txManager, opts: opts, recorder: recorder, now: time.Now}
}

// Run selects the objects of every configured grain within the lookback window,
// validates them and appends their rows in one transaction. Any failure rolls the
// whole run back. Rows are appended without a conflict clause, so running twice over
// the same window appends the same rows twice.
func (j *Job) Run(ctx context.Context) (report *Report, err error) {
	started := j.now()
	window := NewWindow(started, j.opts.LookbackDays, j.opts.Location)
	report = &Report{RunID: uuid.NewString(), Cutoff: window.Cutoff}
	log := logger.WithFields(logger.Fields{"run_id": report.RunID, "run": metrics.RunIngest})

	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "ingest.run")
	span.SetAttributes(attribute.String("run_id", report.RunID), attribute.Int("cutoff", window.Cutoff))
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusFailure
			span.RecordError(err)
			span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
		}
		j.recorder.RecordRun(ctx, metrics.RunIngest, status, j.now().Sub(started))
		span.End()
	}()

	log.Infof("Ingestion run started (cutoff %d, grains %d).", window.Cutoff, len(j.opts.Schemas))

	tx, err := j.txManager.Begin(ctx)
	if err != nil {
		err = exception.New(moduleName, exception.KindDatabase, "failed to begin transaction", err)
		log.WithField("kind", exception.KindDatabase).Errorf("Ingestion run failed: %v", err)
		return nil, err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := j.txManager.Rollback(tx); rbErr != nil {
			log.Errorf("Rollback failed: %v", rbErr)
		} else {
			log.Warnf("Transaction rolled back.")
		}
	}()

	names, err := j.list(ctx)
	if err != nil {
		log.WithField("kind", exception.KindOf(err)).Errorf("Ingestion run failed: %v", err)
		return nil, err
	}

	for _, schema := range j.opts.Schemas {
		glog := log.WithFields(logrus.Fields{"grain": schema.Grain, "table": schema.Table})
		gr, err := j.loadGrain(ctx, tx, window, names, schema, glog)
		if err != nil {
			glog.WithField("kind", exception.KindOf(err)).Errorf("Ingestion run failed: %v", err)
			return nil, err
		}
		report.Grains = append(report.Grains, *gr)
	}

	if err := j.txManager.Commit(tx); err != nil {
		err = exception.New(moduleName, exception.KindDatabase, "failed to commit transaction", err)
		log.WithField("kind", exception.KindDatabase).Errorf("Ingestion run failed: %v", err)
		return nil, err
	}
	committed = true

	for _, g := range report.Grains {
		j.recorder.RecordObjectsSelected(ctx, g.Grain, len(g.Objects))
		j.recorder.RecordRowsAppended(ctx, g.Grain, g.Rows)
	}
	log.Infof("Ingestion run committed: %d objects, %d rows.", report.Objects(), report.Rows())
	return report, nil
}

func (j *Job) list(ctx context.Context) ([]string, error) {
	var names []string
	err := j.store.ListObjects(ctx, j.opts.Bucket, "", func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, exception.New(moduleName, exception.KindStorage, "failed to list objects", err)
	}
	return names, nil
}

func (j *Job) loadGrain(ctx context.Context, tx database.Tx, window Window, names []string, schema Schema, log *logrus.Entry) (*GrainReport, error) {
	selected, err := window.Select(names, schema.Grain.ObjectSuffix())
	if err != nil {
		return nil, err
	}
	log.Infof("Selected %d of %d objects.", len(selected), len(names))

	gr := &GrainReport{Grain: string(schema.Grain), Table: schema.Table}
	for _, name := range selected {
		batch, err := j.read(ctx, name, schema)
		if err != nil {
			return nil, err
		}
		n, err := tx.Append(ctx, schema.Table, batch.Maps(), j.opts.BulkSize)
		if err != nil {
			return nil, exception.New(moduleName, exception.KindDatabase, fmt.Sprintf("failed to append object '%s' to %s", name, schema.Table), err)
		}
		log.WithField("object", name).Debugf("Appended %d rows.", n)
		gr.Objects = append(gr.Objects, name)
		gr.Rows += n
	}
	if len(gr.Objects) == 0 {
		return gr, nil
	}

	total, err := tx.Count(ctx, schema.Table)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDatabase, fmt.Sprintf("failed to count rows of %s", schema.Table), err)
	}
	if total < gr.Rows {
		return nil, exception.Newf(moduleName, exception.KindDatabase, "%s holds %d rows after appending %d", schema.Table, total, gr.Rows)
	}
	gr.TableRows = total
	log.Infof("Appended %d rows from %d objects; table now holds %d rows.", gr.Rows, len(gr.Objects), total)
	return gr, nil
}

func (j *Job) read(ctx context.Context, name string, schema Schema) (*Batch, error) {
	rc, err := j.store.Download(ctx, j.opts.Bucket, name)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindStorage, fmt.Sprintf("failed to download object '%s'", name), err)
	}
	defer rc.Close()
	return j.opts.Validator.Validate(name, schema, rc)
}

// SuccessMessage is the plain-text response of a committed run.
func (j *Job) SuccessMessage(r *Report) string {
	return fmt.Sprintf("CSV data ingested into %s successfully. %d objects, %d rows appended.", j.opts.StoreLabel, r.Objects(), r.Rows())
}

// ErrorMessage is the plain-text response of a failed run.
func ErrorMessage(err error) string {
	return fmt.Sprintf("An error occurred: %s", err)
}

// StoreLabel returns the display name of a database type.
func StoreLabel(dbType string) string {
	switch dbType {
	case "postgres":
		return "PostgreSQL"
	case "mysql":
		return "MySQL"
	case "sqlite":
		return "SQLite"
	default:
		return dbType
	}
}
