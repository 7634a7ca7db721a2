package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/forecastpipe/internal/app"
	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

const stopTimeout = 30 * time.Second

type rootOptions struct {
	configPath  string
	envFilePath string
}

func newRootCmd(ctx context.Context) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "forecastpipe",
		Short:        "Fetch weather forecasts into object storage and load them into SQL tables.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file applied over the embedded configuration")
	root.PersistentFlags().StringVar(&opts.envFilePath, "env-file", "", ".env file to load before reading the configuration")

	root.AddCommand(
		newFetchCmd(ctx, opts),
		newIngestCmd(ctx, opts),
		newMigrateCmd(ctx, opts),
		newServeCmd(ctx, opts),
	)
	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(config.LoadOptions{
		EnvFilePath:  opts.envFilePath,
		Embedded:     config.EmbeddedConfig(embeddedConfig),
		OverridePath: opts.configPath,
	})
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.System.Logging.Level)
	if err := logger.SetFormat(cfg.System.Logging.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runOnce starts a container with the given modules, performs one run and stops it.
func runOnce(ctx context.Context, opts *rootOptions, run func(context.Context, *app.Runner) error, modules ...fx.Option) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var runner *app.Runner
	options := append([]fx.Option{app.Supply(ctx, cfg), app.CoreModule}, modules...)
	options = append(options, fx.Populate(&runner))
	container := fx.New(options...)
	if err := container.Err(); err != nil {
		return err
	}
	if err := container.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := container.Stop(stopCtx); err != nil {
			logger.Warnf("Failed to stop cleanly: %v", err)
		}
	}()
	return run(ctx, runner)
}

func newFetchCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the forecast once and write one CSV object per record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(ctx, opts, func(ctx context.Context, runner *app.Runner) error {
				status, resp := runner.Fetch(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", status, resp.Status)
				if status != http.StatusOK {
					return fmt.Errorf("fetch failed: %s", resp.Output)
				}
				return nil
			}, app.FetchModule)
		},
	}
}

func newIngestCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Load the CSV objects of the lookback window into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(ctx, opts, func(ctx context.Context, runner *app.Runner) error {
				status, msg := runner.Ingest(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				if status != http.StatusOK {
					return errors.New("ingestion failed")
				}
				return nil
			}, app.IngestModule)
		},
	}
}

func newMigrateCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or revert) the forecast table migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return app.Migrate(ctx, cfg, down)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "revert every applied migration")
	return cmd
}

func newServeCmd(ctx context.Context, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the fetch and ingest triggers over HTTP and run the configured schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			container := fx.New(
				app.Supply(ctx, cfg),
				app.CoreModule,
				app.FetchModule,
				app.IngestModule,
				app.ServeModule,
			)
			if err := container.Err(); err != nil {
				return err
			}
			if err := container.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return container.Stop(stopCtx)
		},
	}
}
