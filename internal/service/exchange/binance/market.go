package binance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/samber/lo"
)

const symbolStatusTrading = "TRADING"

var errNoMarkets = errors.New("no tradable markets")

// LoadMarkets 拉取合约交易对信息, 只保留可交易的
func (a *Adapter) LoadMarkets(ctx context.Context) error {
	if err := a.wait(ctx); err != nil {
		return normalize("connect", "", err)
	}
	info, err := a.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return normalize("connect", "", err)
	}
	trading := lo.Filter(info.Symbols, func(item futures.Symbol, _ int) bool {
		return item.Status == symbolStatusTrading
	})
	if len(trading) == 0 {
		return normalize("connect", "", errNoMarkets)
	}
	markets := lo.SliceToMap(trading, func(item futures.Symbol) (string, futures.Symbol) {
		return item.Symbol, item
	})

	a.mu.Lock()
	a.markets = markets
	a.mu.Unlock()
	return nil
}

func (a *Adapter) HasMarket(symbol string) bool {
	s, err := toFuturesSymbol(symbol)
	if err != nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.markets[s]
	return ok
}

func (a *Adapter) market(op, symbol string) (string, error) {
	s, err := toFuturesSymbol(symbol)
	if err != nil {
		return "", normalize(op, symbol, err)
	}
	a.mu.RLock()
	_, ok := a.markets[s]
	a.mu.RUnlock()
	if !ok {
		return "", normalize(op, symbol, fmt.Errorf("unknown market %s", s))
	}
	return s, nil
}

func (a *Adapter) FetchTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	const op = "fetch ticker"
	s, err := a.market(op, symbol)
	if err != nil {
		return exchange.Ticker{}, err
	}

	if err := a.wait(ctx); err != nil {
		return exchange.Ticker{}, normalize(op, symbol, err)
	}
	books, err := a.cli.NewListBookTickersService().Symbol(s).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, normalize(op, symbol, err)
	}
	book, ok := lo.Find(books, func(item *futures.BookTicker) bool {
		return item.Symbol == s
	})
	if !ok {
		return exchange.Ticker{}, normalize(op, symbol, fmt.Errorf("empty book ticker for %s", s))
	}

	if err := a.wait(ctx); err != nil {
		return exchange.Ticker{}, normalize(op, symbol, err)
	}
	prices, err := a.cli.NewListPricesService().Symbol(s).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, normalize(op, symbol, err)
	}
	price, ok := lo.Find(prices, func(item *futures.SymbolPrice) bool {
		return item.Symbol == s
	})
	if !ok {
		return exchange.Ticker{}, normalize(op, symbol, fmt.Errorf("empty price for %s", s))
	}

	last, err := decimalx.Parse(price.Price)
	if err != nil {
		return exchange.Ticker{}, normalize(op, symbol, err)
	}
	bid, err := decimalx.Parse(book.BidPrice)
	if err != nil {
		return exchange.Ticker{}, normalize(op, symbol, err)
	}
	ask, err := decimalx.Parse(book.AskPrice)
	if err != nil {
		return exchange.Ticker{}, normalize(op, symbol, err)
	}
	return exchange.Ticker{
		Symbol:    symbol,
		Last:      last,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}, nil
}
