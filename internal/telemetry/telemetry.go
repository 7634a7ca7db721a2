// Package telemetry installs the global OpenTelemetry tracer provider used by the
// fetch and ingestion runs.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// TracerName is the instrumentation name used by every span in this module.
const TracerName = "github.com/tigerroll/forecastpipe"

// Provider wraps the SDK tracer provider so it can be flushed on shutdown.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup creates a tracer provider and installs it globally. Spans are exported over
// OTLP/HTTP when cfg.OTLPEndpoint is set; otherwise they are sampled but not exported.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Provider, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "forecastpipe"
	}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.OTLPEndpoint != "" {
		clientOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Infof("Tracing: exporting spans to %s", cfg.OTLPEndpoint)
	} else {
		logger.Debugf("Tracing: no OTLP endpoint configured; spans are not exported.")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
