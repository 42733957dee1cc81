package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown order side %q", s)
	}
}

func (s Side) Upper() string {
	return strings.ToUpper(string(s))
}

type OrderType string

// 只支持市价单
const OrderTypeMarket OrderType = "market"

type Ticker struct {
	Symbol    string
	Last      decimal.Decimal
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Timestamp time.Time
}

type OrderResult struct {
	Id     string
	Symbol string
	Side   Side
	Type   OrderType
	Amount decimal.Decimal
	Price  decimal.Decimal // 成交均价
	Status string
}

func (o OrderResult) String() string {
	return fmt.Sprintf("id=%s type=%s price=%s status=%s", o.Id, o.Type, o.Price.String(), o.Status)
}

type Credentials struct {
	ApiKey    string
	SecretKey string
	Testnet   bool
}

func (c Credentials) Present() bool {
	return c.ApiKey != "" && c.SecretKey != ""
}

// Adapter is the single-exchange capability a strategy worker trades through.
// Symbols use the slash form, e.g. BTC/USDT.
type Adapter interface {
	Name() string
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)
	CreateOrder(ctx context.Context, symbol string, side Side, amount decimal.Decimal) (OrderResult, error)
	Close() error
}
