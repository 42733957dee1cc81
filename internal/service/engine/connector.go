package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/exchange/binance"
	"github.com/KNICEX/quantflow/internal/service/exchange/mock"
	"github.com/cenkalti/backoff/v5"
)

// Dialer builds a live adapter; it must load market metadata before returning.
type Dialer func(ctx context.Context, creds exchange.Credentials) (exchange.Adapter, error)

func BinanceDialer(opts ...binance.Option) Dialer {
	return func(ctx context.Context, creds exchange.Credentials) (exchange.Adapter, error) {
		return binance.Dial(ctx, creds, opts...)
	}
}

// Connector 实盘连接失败时回退到模拟交易所, 永远返回可用的 adapter
type Connector struct {
	dial        Dialer
	newMock     func() exchange.Adapter
	maxTries    uint
	newBackOff  func() backoff.BackOff
	dialTimeout time.Duration
}

type ConnectorOption func(*Connector)

func WithDialer(dial Dialer) ConnectorOption {
	return func(c *Connector) {
		c.dial = dial
	}
}

func WithMock(newMock func() exchange.Adapter) ConnectorOption {
	return func(c *Connector) {
		c.newMock = newMock
	}
}

// WithRetry sets the dial attempts and the backoff between them.
func WithRetry(maxTries uint, newBackOff func() backoff.BackOff) ConnectorOption {
	return func(c *Connector) {
		c.maxTries = maxTries
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

func WithDialTimeout(d time.Duration) ConnectorOption {
	return func(c *Connector) {
		c.dialTimeout = d
	}
}

func NewConnector(opts ...ConnectorOption) *Connector {
	c := &Connector{
		dial: BinanceDialer(),
		newMock: func() exchange.Adapter {
			return mock.New()
		},
		maxTries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		dialTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxTries == 0 {
		c.maxTries = 1
	}
	return c
}

// Connect returns a live adapter when creds are present and dialing works.
// Otherwise it returns a mock adapter, plus the dial error if one happened.
func (c *Connector) Connect(ctx context.Context, creds exchange.Credentials) (exchange.Adapter, error) {
	if !creds.Present() {
		return c.newMock(), nil
	}
	adapter, err := backoff.Retry(ctx, func() (exchange.Adapter, error) {
		dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
		a, err := c.dial(dialCtx, creds)
		if err != nil && rejected(err) {
			return nil, backoff.Permanent(err)
		}
		return a, err
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return c.newMock(), fmt.Errorf("dial live exchange: %w", err)
	}
	return adapter, nil
}

var ErrNoCredentials = errors.New("exchange credentials not configured")

// Account dials the live exchange once and reads the futures account. Unlike
// Connect it never falls back to the mock.
func (c *Connector) Account(ctx context.Context, creds exchange.Credentials) (exchange.AccountInfo, error) {
	if !creds.Present() {
		return exchange.AccountInfo{}, ErrNoCredentials
	}
	ctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	a, err := c.dial(ctx, creds)
	if err != nil {
		return exchange.AccountInfo{}, fmt.Errorf("dial live exchange: %w", err)
	}
	defer a.Close()
	src, ok := a.(exchange.AccountService)
	if !ok {
		return exchange.AccountInfo{}, fmt.Errorf("%T has no account information", a)
	}
	return src.GetAccountInfo(ctx)
}

// rejected 交易所明确拒绝(例如 key 无效)时不再重试
func rejected(err error) bool {
	var exErr *exchange.Error
	return errors.As(err, &exErr) && exErr.Code != 0
}
