package binance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// CreateOrder 合约市价单
func (a *Adapter) CreateOrder(ctx context.Context, symbol string, side exchange.Side, amount decimal.Decimal) (exchange.OrderResult, error) {
	const op = "create order"
	s, err := a.market(op, symbol)
	if err != nil {
		return exchange.OrderResult{}, err
	}
	fSide := futuresSide(side)
	if fSide == "" {
		return exchange.OrderResult{}, normalize(op, symbol, fmt.Errorf("unknown side %q", side))
	}
	if !amount.IsPositive() {
		return exchange.OrderResult{}, normalize(op, symbol, fmt.Errorf("amount must be positive, got %s", amount))
	}

	if err := a.wait(ctx); err != nil {
		return exchange.OrderResult{}, normalize(op, symbol, err)
	}
	resp, err := a.cli.NewCreateOrderService().
		Symbol(s).
		Side(fSide).
		Type(futures.OrderTypeMarket).
		Quantity(amount.String()).
		Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, normalize(op, symbol, err)
	}

	price := decimalx.ParseOrZero(resp.AvgPrice)
	if price.IsZero() {
		// 市价单 ACK 可能没有成交均价, 用最新价兜底
		if tk, err := a.FetchTicker(ctx, symbol); err == nil {
			price = tk.Last
		}
	}
	filled := decimalx.ParseOrZero(resp.ExecutedQuantity)
	if filled.IsZero() {
		filled = amount
	}

	resSide := fromFuturesSide(resp.Side)
	if resSide == "" {
		resSide = side
	}
	return exchange.OrderResult{
		Id:     strconv.FormatInt(resp.OrderID, 10),
		Symbol: symbol,
		Side:   resSide,
		Type:   exchange.OrderTypeMarket,
		Amount: filled,
		Price:  price,
		Status: fromFuturesStatus(resp.Status),
	}, nil
}
