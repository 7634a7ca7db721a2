// Package app wires the forecastpipe runs, the invocation server and the scheduler
// into go.uber.org/fx containers, one per command.
package app

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/metrics"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
	"github.com/tigerroll/forecastpipe/internal/telemetry"
)

// CoreModule provides the pieces shared by every command.
var CoreModule = fx.Options(
	logger.Module,
	fx.Provide(
		NewLocation,
		metrics.NewPrometheusRecorder,
		func(r *metrics.PrometheusRecorder) metrics.Recorder { return r },
		func(r *metrics.PrometheusRecorder) prometheus.Gatherer { return r.Registry() },
		fx.Annotate(NewStorageConnection, fx.ParamTags("", AppContextTag, "")),
		fx.Annotate(NewTelemetry, fx.ParamTags("", AppContextTag, "")),
		NewRunner,
	),
	// Tracing is installed before any run starts.
	fx.Invoke(func(*telemetry.Provider) {}),
)

// FetchModule wires the fetch run.
var FetchModule = fx.Options(
	fx.Provide(
		fx.Annotate(NewSecretSource, fx.ParamTags("", AppContextTag, "")),
		NewForecastClient,
		NewFetchJob,
	),
)

// IngestModule wires the ingestion run.
var IngestModule = fx.Options(
	fx.Provide(
		fx.Annotate(NewDatabaseConnection, fx.ParamTags("", AppContextTag, "")),
		NewTransactionManager,
		NewIngestJob,
	),
)

// ServeModule starts the invocation server and the scheduler with the container.
var ServeModule = fx.Options(
	fx.Provide(
		NewServer,
		fx.Annotate(func(ctx context.Context, cfg *config.Config, loc *time.Location, runner *Runner) (*Scheduler, error) {
			return NewScheduler(ctx, cfg.Schedule, loc, runner)
		}, fx.ParamTags(AppContextTag, "", "", "")),
	),
	fx.Invoke(registerServeHooks),
)

// Supply returns the options that place the configuration and the process context
// in the container.
func Supply(appCtx context.Context, cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(fx.Annotate(func() context.Context { return appCtx }, fx.ResultTags(AppContextTag))),
	)
}

func registerServeHooks(lc fx.Lifecycle, cfg *config.Config, server *fiber.App, scheduler *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Infof("Invocation server listening on %s", cfg.Server.Address)
				if err := server.Listen(cfg.Server.Address); err != nil {
					logger.Errorf("Invocation server stopped: %v", err)
				}
			}()
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return server.ShutdownWithContext(ctx)
		},
	})
}
