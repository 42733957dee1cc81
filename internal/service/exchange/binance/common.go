package binance

import (
	"errors"
	"strings"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

func futuresSide(side exchange.Side) futures.SideType {
	switch side {
	case exchange.Buy:
		return futures.SideTypeBuy
	case exchange.Sell:
		return futures.SideTypeSell
	default:
		return ""
	}
}

func fromFuturesSide(side futures.SideType) exchange.Side {
	switch side {
	case futures.SideTypeBuy:
		return exchange.Buy
	case futures.SideTypeSell:
		return exchange.Sell
	default:
		return exchange.Side(strings.ToLower(string(side)))
	}
}

func fromFuturesStatus(status futures.OrderStatusType) string {
	return strings.ToLower(string(status))
}

// toFuturesSymbol BTC/USDT -> BTCUSDT
func toFuturesSymbol(symbol string) (string, error) {
	pair, err := exchange.ParseTradingPair(symbol)
	if err != nil {
		return "", err
	}
	return pair.ToString(), nil
}

// normalize 把 go-binance 的错误统一成 exchange.Error
func normalize(op, symbol string, err error) error {
	if err == nil {
		return nil
	}
	exErr := &exchange.Error{Op: op, Symbol: symbol, Cause: err}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		exErr.Code = apiErr.Code
	}
	return exErr
}
