package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KNICEX/quantflow/internal/entity"
	"github.com/KNICEX/quantflow/internal/repo"
	"go.uber.org/multierr"
)

// Emit appends ev and never fails: sink errors and panics are only reported
// to the process log.
func Emit(ctx context.Context, sink Sink, ev Event) {
	if sink == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("journal sink panic", "strategy_id", ev.StrategyId, "panic", r)
		}
	}()
	if err := sink.Append(ctx, ev); err != nil {
		slog.Warn("journal append failed", "strategy_id", ev.StrategyId, "level", ev.Level, "error", err)
	}
}

type RepoSink struct {
	repo repo.LogRepo
}

func NewRepoSink(logRepo repo.LogRepo) *RepoSink {
	return &RepoSink{repo: logRepo}
}

func (s *RepoSink) Append(ctx context.Context, ev Event) error {
	// 日志不应该因为 worker 被取消而丢失
	return s.repo.Create(context.WithoutCancel(ctx), entity.Log{
		StrategyId: ev.StrategyId,
		Timestamp:  ev.Time,
		Level:      string(ev.Level),
		Message:    ev.Message,
	})
}

type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Append(ctx context.Context, ev Event) error {
	level := slog.LevelInfo
	switch ev.Level {
	case LevelError:
		level = slog.LevelError
	case LevelWarn:
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(context.WithoutCancel(ctx), level, ev.Message,
		slog.String("strategy_id", ev.StrategyId),
		slog.String("level_tag", string(ev.Level)),
	)
	return nil
}

type tee []Sink

// Tee fans an event out to every sink, collecting all errors.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Append(ctx context.Context, ev Event) error {
	var err error
	for i, s := range t {
		if e := s.Append(ctx, ev); e != nil {
			err = multierr.Append(err, fmt.Errorf("sink %d: %w", i, e))
		}
	}
	return err
}
