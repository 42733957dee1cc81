package binance

import (
	"context"

	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/samber/lo"
)

var _ exchange.AccountService = (*Adapter)(nil)

func (a *Adapter) GetAccountInfo(ctx context.Context) (exchange.AccountInfo, error) {
	account, err := a.account(ctx, "account")
	if err != nil {
		return exchange.AccountInfo{}, err
	}

	// MaxWithdrawAmount 是真正可用于开新仓的资金（已扣除挂单锁定的保证金）
	return exchange.AccountInfo{
		TotalBalance:      decimalx.ParseOrZero(account.TotalWalletBalance),
		AvailableBalance:  decimalx.ParseOrZero(account.MaxWithdrawAmount),
		UnrealizedPnl:     decimalx.ParseOrZero(account.TotalUnrealizedProfit),
		MarginBalance:     decimalx.ParseOrZero(account.TotalMarginBalance),
		MaintenanceMargin: decimalx.ParseOrZero(account.TotalMaintMargin),
		Positions:         openPositions(account.Positions),
	}, nil
}

// account is a signed call, so it also proves the credentials work.
func (a *Adapter) account(ctx context.Context, op string) (*futures.Account, error) {
	if err := a.wait(ctx); err != nil {
		return nil, normalize(op, "", err)
	}
	account, err := a.cli.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, normalize(op, "", err)
	}
	return account, nil
}

func openPositions(positions []*futures.AccountPosition) []exchange.Position {
	open := lo.Filter(positions, func(item *futures.AccountPosition, _ int) bool {
		return item != nil && !decimalx.ParseOrZero(item.PositionAmt).IsZero()
	})
	return lo.Map(open, func(item *futures.AccountPosition, _ int) exchange.Position {
		symbol := item.Symbol
		if base, quote := exchange.SplitSymbol(item.Symbol); quote != "" {
			symbol = exchange.TradingPair{Base: base, Quote: quote}.ToSlashString()
		}
		return exchange.Position{
			Symbol:        symbol,
			Amount:        decimalx.ParseOrZero(item.PositionAmt),
			EntryPrice:    decimalx.ParseOrZero(item.EntryPrice),
			UnrealizedPnl: decimalx.ParseOrZero(item.UnrealizedProfit),
		}
	})
}
