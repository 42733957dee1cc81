package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/exchange/mock"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return noon
}

type recordingSink struct {
	mu     sync.Mutex
	events []journal.Event
}

func (s *recordingSink) Append(_ context.Context, ev journal.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) of(id string) []journal.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []journal.Event
	for _, ev := range s.events {
		if ev.StrategyId == id {
			res = append(res, ev)
		}
	}
	return res
}

func (s *recordingSink) count(id string, level journal.Level, prefix string) int {
	n := 0
	for _, ev := range s.of(id) {
		if ev.Level == level && strings.HasPrefix(ev.Message, prefix) {
			n++
		}
	}
	return n
}

func (s *recordingSink) messages(id string) []string {
	var res []string
	for _, ev := range s.of(id) {
		res = append(res, string(ev.Level)+" "+ev.Message)
	}
	return res
}

// fakeAdapter wraps the mock exchange with failure injection.
type fakeAdapter struct {
	*mock.Exchange
	name        string
	fetchErr    error
	panics      bool
	orderPanics bool
	closed      atomic.Bool
	onClose     func()
}

func (a *fakeAdapter) Name() string {
	return a.name
}

func (a *fakeAdapter) FetchTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	if a.panics {
		panic("adapter exploded")
	}
	if a.fetchErr != nil {
		return exchange.Ticker{}, a.fetchErr
	}
	return a.Exchange.FetchTicker(ctx, symbol)
}

func (a *fakeAdapter) CreateOrder(ctx context.Context, symbol string, side exchange.Side, amount decimal.Decimal) (exchange.OrderResult, error) {
	if a.orderPanics {
		panic("order exploded")
	}
	return a.Exchange.CreateOrder(ctx, symbol, side, amount)
}

func (a *fakeAdapter) Close() error {
	if a.closed.CompareAndSwap(false, true) && a.onClose != nil {
		a.onClose()
	}
	return nil
}

var liveCreds = exchange.Credentials{ApiKey: "key", SecretKey: "secret", Testnet: true}

func fastRetry(tries uint) ConnectorOption {
	return WithRetry(tries, func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	})
}

func dialerReturning(a exchange.Adapter) Dialer {
	return func(context.Context, exchange.Credentials) (exchange.Adapter, error) {
		return a, nil
	}
}

var errBadKey = &exchange.Error{Op: "connect", Code: -2015, Cause: errors.New("Invalid API-key, IP, or permissions for action")}

func testConfig() Config {
	return Config{TickInterval: 10 * time.Millisecond, Clock: fixedClock}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond, msg)
}
