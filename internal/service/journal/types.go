package journal

import (
	"context"
	"time"
)

type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelTrade Level = "TRADE"
)

// Event 策略日志
type Event struct {
	StrategyId string
	Time       time.Time
	Level      Level
	Message    string
}

type Sink interface {
	Append(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Append(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
