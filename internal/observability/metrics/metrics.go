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
	postings          metric.Int64Counter
	reversals         metric.Int64Counter
	postingRejections metric.Int64Counter
	integrityFailures metric.Int64Counter
	fraudFlags        metric.Int64Counter
	reports           metric.Int64Counter
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
		name = "rems-ledger"
	}
	meter := provider.Meter(name)

	postings, err := meter.Int64Counter("ledger_postings_total")
	if err != nil {
		return nil, err
	}
	reversals, err := meter.Int64Counter("ledger_reversals_total")
	if err != nil {
		return nil, err
	}
	postingRejections, err := meter.Int64Counter("ledger_posting_rejections_total")
	if err != nil {
		return nil, err
	}
	integrityFailures, err := meter.Int64Counter("ledger_integrity_failures_total")
	if err != nil {
		return nil, err
	}
	fraudFlags, err := meter.Int64Counter("ledger_fraud_flags_total")
	if err != nil {
		return nil, err
	}
	reports, err := meter.Int64Counter("ledger_reports_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		postings:          postings,
		reversals:         reversals,
		postingRejections: postingRejections,
		integrityFailures: integrityFailures,
		fraudFlags:        fraudFlags,
		reports:           reports,
	}, nil
}

// RecordPosting increments posted journal entry counts.
func (m *Metrics) RecordPosting(ctx context.Context, voucherType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("voucher_type", strings.TrimSpace(voucherType)))
	m.postings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReversal increments reversal entry counts.
func (m *Metrics) RecordReversal(ctx context.Context, voucherType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("voucher_type", strings.TrimSpace(voucherType)))
	m.reversals.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPostingRejection increments rejected posting counts by violation code.
func (m *Metrics) RecordPostingRejection(ctx context.Context, code string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("violation", strings.TrimSpace(code)))
	m.postingRejections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordIntegrityFailure increments report integrity failure counts.
func (m *Metrics) RecordIntegrityFailure(ctx context.Context, report string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("report", strings.TrimSpace(report)))
	m.integrityFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFraudFlag increments fraud flag counts by flag type.
func (m *Metrics) RecordFraudFlag(ctx context.Context, flagType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("flag_type", strings.TrimSpace(flagType)))
	m.fraudFlags.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReport increments generated report counts.
func (m *Metrics) RecordReport(ctx context.Context, report string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("report", strings.TrimSpace(report)))
	m.reports.Add(ctx, 1, metric.WithAttributes(attrs...))
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"voucher_type": {},
	"violation":    {},
	"report":       {},
	"flag_type":    {},
	"endpoint":     {},
	"status_code":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
