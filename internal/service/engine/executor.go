package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/KNICEX/quantflow/internal/service/program"
	"github.com/shopspring/decimal"
)

var _ program.Host = (*Executor)(nil)

// Executor 策略在宿主侧的能力: 写日志, 下市价单
type Executor struct {
	strategyId string
	adapter    exchange.Adapter
	sink       journal.Sink
	clock      func() time.Time
	metrics    *metrics
}

func NewExecutor(strategyId string, adapter exchange.Adapter, sink journal.Sink, clock func() time.Time, m *metrics) *Executor {
	if clock == nil {
		clock = time.Now
	}
	if m == nil {
		m = newMetrics(nil)
	}
	return &Executor{
		strategyId: strategyId,
		adapter:    adapter,
		sink:       sink,
		clock:      clock,
		metrics:    m,
	}
}

func (e *Executor) Log(ctx context.Context, level journal.Level, msg string) {
	journal.Emit(ctx, e.sink, journal.Event{
		StrategyId: e.strategyId,
		Time:       e.clock(),
		Level:      level,
		Message:    msg,
	})
}

// Order places a market order. Failures are logged and returned, never raised.
func (e *Executor) Order(ctx context.Context, side exchange.Side, symbol string, amount decimal.Decimal) (exchange.OrderResult, error) {
	res, err := e.adapter.CreateOrder(ctx, symbol, side, amount)
	e.metrics.order(ctx, e.strategyId, string(side), err == nil)
	if err != nil {
		e.Log(ctx, journal.LevelError, fmt.Sprintf("Order failed: %v", err))
		return exchange.OrderResult{}, err
	}
	e.Log(ctx, journal.LevelTrade, fmt.Sprintf("%s %s %s: %s", side.Upper(), symbol, amount.String(), res))
	return res, nil
}

func (e *Executor) Now() time.Time {
	return e.clock()
}
