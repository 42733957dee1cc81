package ioc

import (
	"time"

	"github.com/KNICEX/quantflow/internal/service/engine"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
)

type engineConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	TickTimeout     time.Duration `mapstructure:"tick_timeout"`
	Symbol          string        `mapstructure:"symbol"`
	ConnectAttempts uint          `mapstructure:"connect_attempts"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

func loadEngineConfig() engineConfig {
	cfg := engineConfig{ConnectAttempts: 3, ConnectTimeout: 30 * time.Second}
	if err := viper.UnmarshalKey("engine", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

// InitConnector is shared by the workers and the account endpoint.
func InitConnector() *engine.Connector {
	cfg := loadEngineConfig()
	return engine.NewConnector(
		engine.WithDialer(engine.BinanceDialer(InitBinanceOptions()...)),
		engine.WithRetry(cfg.ConnectAttempts, func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		}),
		engine.WithDialTimeout(cfg.ConnectTimeout),
	)
}

func InitEngine(connector *engine.Connector, sink journal.Sink, mp metric.MeterProvider) *engine.Manager {
	cfg := loadEngineConfig()
	return engine.NewManager(
		engine.WithConfig(engine.Config{
			TickInterval: cfg.TickInterval,
			TickTimeout:  cfg.TickTimeout,
			Symbol:       cfg.Symbol,
		}),
		engine.WithConnector(connector),
		engine.WithSink(sink),
		engine.WithMeterProvider(mp),
	)
}
