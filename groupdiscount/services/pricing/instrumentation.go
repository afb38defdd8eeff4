package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "group-discount-pricing"

// Metrics agrupa os contadores do serviço de preços
type Metrics struct {
	cacheLookups    metric.Int64Counter
	sourceFailures  metric.Int64Counter
	cacheFlushes    metric.Int64Counter
	tierResolutions metric.Int64Counter
}

// NewMetrics registra os contadores no meter informado
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(instrumentationName)
	}

	cacheLookups, err := meter.Int64Counter(
		"group_discount.cache.lookups",
		metric.WithDescription("Cache lookups by result (hit, miss, bypass)"),
	)
	if err != nil {
		return nil, err
	}

	sourceFailures, err := meter.Int64Counter(
		"group_discount.quantity.source_failures",
		metric.WithDescription("Quantity source queries that failed and contributed zero"),
	)
	if err != nil {
		return nil, err
	}

	cacheFlushes, err := meter.Int64Counter(
		"group_discount.cache.flushes",
		metric.WithDescription("Cache invalidations by reason"),
	)
	if err != nil {
		return nil, err
	}

	tierResolutions, err := meter.Int64Counter(
		"group_discount.tier.resolutions",
		metric.WithDescription("Price resolutions by outcome (tier, none)"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		cacheLookups:    cacheLookups,
		sourceFailures:  sourceFailures,
		cacheFlushes:    cacheFlushes,
		tierResolutions: tierResolutions,
	}, nil
}

func (m *Metrics) CacheLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) SourceFailure(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.sourceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) CacheFlush(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.cacheFlushes.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) TierResolution(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.tierResolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// debugLogger só escreve quando o modo debug está ligado
type debugLogger struct {
	enabled bool
}

func (d debugLogger) Printf(format string, args ...any) {
	if !d.enabled {
		return
	}
	log.Printf("🐞 [DEBUG] "+format, args...)
}

// startSpan cria um span filho usando o tracer global
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}
