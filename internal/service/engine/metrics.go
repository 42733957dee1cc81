package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/KNICEX/quantflow/internal/service/engine"

type metrics struct {
	ticks        metric.Int64Counter
	tickErrors   metric.Int64Counter
	orders       metric.Int64Counter
	active       metric.Int64UpDownCounter
	tickDuration metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) *metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &metrics{}
	var err error
	// 创建失败时 otel 仍然返回可用的 noop instrument
	if m.ticks, err = meter.Int64Counter("strategy.ticks", metric.WithDescription("strategy loop iterations")); err != nil {
		slog.Warn("create metric", "name", "strategy.ticks", "error", err)
	}
	if m.tickErrors, err = meter.Int64Counter("strategy.tick.errors", metric.WithDescription("ticks that ended with an error")); err != nil {
		slog.Warn("create metric", "name", "strategy.tick.errors", "error", err)
	}
	if m.orders, err = meter.Int64Counter("strategy.orders", metric.WithDescription("market orders placed by strategies")); err != nil {
		slog.Warn("create metric", "name", "strategy.orders", "error", err)
	}
	if m.active, err = meter.Int64UpDownCounter("strategy.workers.active", metric.WithDescription("workers in RUNNING state")); err != nil {
		slog.Warn("create metric", "name", "strategy.workers.active", "error", err)
	}
	if m.tickDuration, err = meter.Float64Histogram("strategy.tick.duration", metric.WithUnit("s")); err != nil {
		slog.Warn("create metric", "name", "strategy.tick.duration", "error", err)
	}
	return m
}

func strategyAttr(id string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("strategy_id", id))
}

func (m *metrics) tick(ctx context.Context, id string, elapsed time.Duration, failed bool) {
	attrs := strategyAttr(id)
	m.ticks.Add(ctx, 1, attrs)
	if failed {
		m.tickErrors.Add(ctx, 1, attrs)
	}
	m.tickDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *metrics) order(ctx context.Context, id, side string, ok bool) {
	m.orders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy_id", id),
		attribute.String("side", side),
		attribute.Bool("ok", ok),
	))
}
