package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var _ exchange.Adapter = (*Exchange)(nil)

var (
	basePrice  = decimal.NewFromInt(30000)
	halfSpread = decimal.NewFromInt(5)
)

const jitter = 500.0

// Exchange 模拟交易所, 没有配置 api key 或者实盘连接失败时使用
type Exchange struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	now     func() time.Time
	orderId int64
}

type Option func(*Exchange)

func WithRand(rnd *rand.Rand) Option {
	return func(e *Exchange) {
		e.rnd = rnd
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Exchange) {
		e.now = now
	}
}

func New(opts ...Option) *Exchange {
	e := &Exchange{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exchange) Name() string {
	return "mock"
}

func (e *Exchange) FetchTicker(_ context.Context, symbol string) (exchange.Ticker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticker(symbol), nil
}

func (e *Exchange) ticker(symbol string) exchange.Ticker {
	offset := (e.rnd.Float64()*2 - 1) * jitter
	price := basePrice.Add(decimal.NewFromFloat(offset).Round(2))
	return exchange.Ticker{
		Symbol:    symbol,
		Last:      price,
		Bid:       price.Sub(halfSpread),
		Ask:       price.Add(halfSpread),
		Timestamp: e.now(),
	}
}

func (e *Exchange) CreateOrder(_ context.Context, symbol string, side exchange.Side, amount decimal.Decimal) (exchange.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orderId++
	return exchange.OrderResult{
		Id:     fmt.Sprintf("mock-%d", e.orderId),
		Symbol: symbol,
		Side:   side,
		Type:   exchange.OrderTypeMarket,
		Amount: amount,
		Price:  e.ticker(symbol).Last,
		Status: "closed",
	}, nil
}

func (e *Exchange) Close() error {
	return nil
}
