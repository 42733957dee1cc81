package ioc

import (
	"github.com/KNICEX/quantflow/internal/service/exchange/binance"
	"github.com/spf13/viper"
)

// InitBinanceOptions 实盘适配器的参数, key 由用户在设置页填写
func InitBinanceOptions() []binance.Option {
	type Config struct {
		BaseURL   string  `mapstructure:"base_url"`
		RateLimit float64 `mapstructure:"rate_limit"`
		Burst     int     `mapstructure:"burst"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("exchange.binance", &cfg); err != nil {
		panic(err)
	}

	var opts []binance.Option
	if cfg.BaseURL != "" {
		opts = append(opts, binance.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, binance.WithRateLimit(cfg.RateLimit, max(cfg.Burst, 1)))
	}
	return opts
}
