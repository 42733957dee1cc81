package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountInfo 合约账户概况, 以 USDT 计
type AccountInfo struct {
	TotalBalance      decimal.Decimal
	AvailableBalance  decimal.Decimal
	UnrealizedPnl     decimal.Decimal
	MarginBalance     decimal.Decimal
	MaintenanceMargin decimal.Decimal
	Positions         []Position
}

type Position struct {
	Symbol        string
	Amount        decimal.Decimal // 负数为空头
	EntryPrice    decimal.Decimal
	UnrealizedPnl decimal.Decimal
}

// AccountService is implemented by adapters that can read the account.
type AccountService interface {
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
}
