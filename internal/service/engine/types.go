package engine

import (
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
)

const (
	DefaultSymbol       = "BTC/USDT"
	DefaultTickInterval = 5 * time.Second
)

// Spec is the immutable input of one strategy run.
type Spec struct {
	Id            string
	Name          string
	Code          string
	ScheduleStart string
	ScheduleEnd   string
	// Symbol 为空时使用 Config.Symbol
	Symbol string
}

type Config struct {
	TickInterval time.Duration
	// TickTimeout 单次 onTick 的最长执行时间, 0 表示不限制
	TickTimeout time.Duration
	Symbol      string
	Clock       func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.Symbol == "" {
		c.Symbol = DefaultSymbol
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}

// Registry is the lifecycle table the API layer drives.
type Registry interface {
	Start(spec Spec, creds exchange.Credentials)
	// Stop 不等待 worker 退出, 返回的 channel 在 worker 退出后关闭
	Stop(id string) <-chan struct{}
	StopAll()
	Running(id string) bool
}
