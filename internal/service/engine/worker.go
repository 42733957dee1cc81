package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/KNICEX/quantflow/internal/schedule"
	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/KNICEX/quantflow/internal/service/program"
	"github.com/sourcegraph/conc/panics"
)

var _ schedule.Task = (*Worker)(nil)

// Worker 单个策略的运行循环
type Worker struct {
	spec      Spec
	creds     exchange.Credentials
	cfg       Config
	connector *Connector
	sink      journal.Sink
	metrics   *metrics

	state atomic.Int32
	ticks atomic.Int64
}

func NewWorker(spec Spec, creds exchange.Credentials, cfg Config, connector *Connector, sink journal.Sink, m *metrics) *Worker {
	cfg = cfg.withDefaults()
	if spec.Symbol == "" {
		spec.Symbol = cfg.Symbol
	}
	if connector == nil {
		connector = NewConnector()
	}
	if m == nil {
		m = newMetrics(nil)
	}
	return &Worker{
		spec:      spec,
		creds:     creds,
		cfg:       cfg,
		connector: connector,
		sink:      sink,
		metrics:   m,
	}
}

func (w *Worker) Name() string {
	return "strategy:" + w.spec.Id
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Ticks returns the number of loop iterations that reached the entry point stage.
func (w *Worker) Ticks() int64 {
	return w.ticks.Load()
}

func (w *Worker) transition(to State) {
	from := w.State()
	if !CanTransition(from, to) {
		panic(fmt.Sprintf("strategy %s: illegal transition %s -> %s", w.spec.Id, from, to))
	}
	w.state.Store(int32(to))
	slog.Debug("strategy state", "strategy_id", w.spec.Id, "from", from.String(), "to", to.String())
}

func (w *Worker) log(ctx context.Context, level journal.Level, msg string) {
	journal.Emit(ctx, w.sink, journal.Event{
		StrategyId: w.spec.Id,
		Time:       w.cfg.Clock(),
		Level:      level,
		Message:    msg,
	})
}

// Run drives the worker to STOPPED or FAILED. The returned error is only
// informational: the startup failure that caused FAILED, if any.
func (w *Worker) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		w.transition(StateStopping)
		w.log(ctx, journal.LevelInfo, "Strategy stopped")
		w.transition(StateStopped)
		return nil
	}
	w.log(ctx, journal.LevelInfo, "Starting strategy runner")

	w.transition(StateConnecting)
	adapter, err := w.connect(ctx)
	if err != nil {
		w.log(ctx, journal.LevelError, fmt.Sprintf("Exchange init failed: %v", err))
		w.transition(StateFailed)
		return err
	}
	if ctx.Err() != nil {
		return w.shutdown(ctx, adapter, nil)
	}

	w.transition(StateCompiling)
	host := NewExecutor(w.spec.Id, adapter, w.sink, w.cfg.Clock, w.metrics)
	prog, err := w.compile(ctx, host)
	if err != nil {
		if errors.Is(err, program.ErrMissingEntryPoint) {
			w.log(ctx, journal.LevelError, "Strategy missing required "+program.EntryPoint+" function")
		} else {
			w.log(ctx, journal.LevelError, fmt.Sprintf("Code compilation failed: %v", err))
		}
		_ = adapter.Close()
		w.transition(StateFailed)
		return err
	}
	if ctx.Err() != nil {
		return w.shutdown(ctx, adapter, prog)
	}

	w.transition(StateRunning)
	w.metrics.active.Add(ctx, 1, strategyAttr(w.spec.Id))
	w.loop(ctx, adapter, prog)
	w.metrics.active.Add(context.WithoutCancel(ctx), -1, strategyAttr(w.spec.Id))

	return w.shutdown(ctx, adapter, prog)
}

// connect resolves an adapter. It only fails if the connector panics.
func (w *Worker) connect(ctx context.Context) (adapter exchange.Adapter, err error) {
	var c panics.Catcher
	c.Try(func() {
		var dialErr error
		adapter, dialErr = w.connector.Connect(ctx, w.creds)
		switch {
		case dialErr != nil && ctx.Err() != nil:
			// 连接中被停止, 马上会进入 STOPPING
			return
		case dialErr != nil:
			w.log(ctx, journal.LevelError, fmt.Sprintf("Exchange init failed, falling back to mock: %v", dialErr))
		case w.creds.Present():
			w.log(ctx, journal.LevelInfo, "Exchange connected successfully")
		}
		if dialErr != nil || !w.creds.Present() {
			w.log(ctx, journal.LevelInfo, "Using mock exchange")
		}
	})
	if r := c.Recovered(); r != nil {
		return nil, r.AsError()
	}
	return adapter, nil
}

func (w *Worker) compile(ctx context.Context, host program.Host) (prog *program.Program, err error) {
	var c panics.Catcher
	c.Try(func() {
		prog, err = program.Compile(ctx, w.spec.Id+".js", w.spec.Code, host,
			program.WithTickTimeout(w.cfg.TickTimeout))
	})
	if r := c.Recovered(); r != nil {
		return nil, &program.CompileError{Name: w.spec.Id, Cause: r.AsError()}
	}
	return prog, err
}

func (w *Worker) loop(ctx context.Context, adapter exchange.Adapter, prog *program.Program) {
	window := schedule.Window{Start: w.spec.ScheduleStart, End: w.spec.ScheduleEnd}
	if err := window.Validate(); err != nil {
		// 时间格式错误时不限制运行
		slog.Warn("invalid schedule, running without window", "strategy_id", w.spec.Id, "error", err)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for {
		if ctx.Err() != nil {
			return
		}
		if !window.Contains(w.cfg.Clock()) {
			w.log(ctx, journal.LevelInfo, "Outside schedule window, stopping strategy")
			return
		}
		w.tick(ctx, adapter, prog)

		timer.Reset(w.cfg.TickInterval)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// tick never lets an error or panic escape: one bad tick must not stop the loop.
func (w *Worker) tick(ctx context.Context, adapter exchange.Adapter, prog *program.Program) {
	start := time.Now()
	failed := false
	var c panics.Catcher
	c.Try(func() {
		tk, err := adapter.FetchTicker(ctx, w.spec.Symbol)
		if err != nil {
			if ctx.Err() == nil {
				failed = true
				w.log(ctx, journal.LevelError, fmt.Sprintf("Runtime error: %v", err))
			}
			return
		}
		w.ticks.Add(1)
		if err := prog.Invoke(ctx, tk); err != nil {
			failed = true
			w.log(ctx, journal.LevelError, fmt.Sprintf("Runtime error: %v", err))
		}
	})
	if r := c.Recovered(); r != nil {
		failed = true
		w.log(ctx, journal.LevelError, fmt.Sprintf("Runtime error: %v", r.AsError()))
	}
	w.metrics.tick(context.WithoutCancel(ctx), w.spec.Id, time.Since(start), failed)
}

func (w *Worker) shutdown(ctx context.Context, adapter exchange.Adapter, prog *program.Program) error {
	w.transition(StateStopping)
	if prog != nil {
		prog.Close()
	}
	if err := adapter.Close(); err != nil {
		slog.Warn("close exchange adapter", "strategy_id", w.spec.Id, "error", err)
	}
	w.log(ctx, journal.LevelInfo, "Strategy stopped")
	w.transition(StateStopped)
	return nil
}
