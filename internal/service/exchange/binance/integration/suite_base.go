package integration

import (
	"context"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/exchange/binance"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
)

// BaseSuite 连接合约测试网, 没有配置 key 时跳过
type BaseSuite struct {
	suite.Suite
	adapter *binance.Adapter

	testSymbol string
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *BaseSuite) SetupSuite() {
	viper.AddConfigPath("../../../../../config")
	viper.SetConfigName("config.dev")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		s.T().Skipf("no config file: %v", err)
	}

	type Config struct {
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
	}
	var cfg Config
	s.Require().NoError(viper.UnmarshalKey("exchange.binance_testnet", &cfg), "解析配置失败")
	if cfg.ApiKey == "" || cfg.ApiSecret == "" {
		s.T().Skip("exchange.binance_testnet not configured")
	}

	s.ctx, s.cancel = context.WithTimeout(context.Background(), time.Minute)
	adapter, err := binance.Dial(s.ctx, exchange.Credentials{
		ApiKey:    cfg.ApiKey,
		SecretKey: cfg.ApiSecret,
		Testnet:   true,
	})
	s.Require().NoError(err)
	s.adapter = adapter
	s.testSymbol = "BTC/USDT"
}

func (s *BaseSuite) TearDownSuite() {
	if s.adapter != nil {
		_ = s.adapter.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
}
