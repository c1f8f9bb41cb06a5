package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	authzDecisions  metric.Int64Counter
	bulkSkipped     metric.Int64Counter
	purgedRecords   metric.Int64Counter
	outboxPublished metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "loopwork"
	}
	meter := provider.Meter(name)

	authzDecisions, err := meter.Int64Counter("loopwork_authz_decisions_total")
	if err != nil {
		return nil, err
	}
	bulkSkipped, err := meter.Int64Counter("loopwork_bulk_items_skipped_total")
	if err != nil {
		return nil, err
	}
	purgedRecords, err := meter.Int64Counter("loopwork_purged_records_total")
	if err != nil {
		return nil, err
	}
	outboxPublished, err := meter.Int64Counter("loopwork_outbox_published_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		authzDecisions:  authzDecisions,
		bulkSkipped:     bulkSkipped,
		purgedRecords:   purgedRecords,
		outboxPublished: outboxPublished,
	}, nil
}

// RecordAuthzDecision counts allow/deny outcomes per object and action.
func (m *Metrics) RecordAuthzDecision(ctx context.Context, object, action string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.authzDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("object", strings.TrimSpace(object)),
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("outcome", outcome),
	))
}

// RecordBulkSkipped counts items silently skipped by bulk mutations.
func (m *Metrics) RecordBulkSkipped(ctx context.Context, operation string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.bulkSkipped.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
	))
}

// RecordPurged counts hard-deleted records per entity type.
func (m *Metrics) RecordPurged(ctx context.Context, entityType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.purgedRecords.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("entity_type", strings.TrimSpace(entityType)),
	))
}

// RecordOutboxPublished counts notification events handed to the dispatcher.
func (m *Metrics) RecordOutboxPublished(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.outboxPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", strings.TrimSpace(eventType)),
	))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
