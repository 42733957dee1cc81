package strategy

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KNICEX/quantflow/internal/service/engine"
	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/samber/lo"
)

// AccountSource reads the live futures account for the given credentials.
type AccountSource interface {
	Account(ctx context.Context, creds exchange.Credentials) (exchange.AccountInfo, error)
}

var _ AccountSource = (*engine.Connector)(nil)

type Position struct {
	Symbol        string  `json:"symbol"`
	Amount        float64 `json:"amount"`
	EntryPrice    float64 `json:"entryPrice"`
	UnrealizedPnl float64 `json:"unrealizedPnL"`
}

type Account struct {
	TotalBalance      float64    `json:"totalBalance"`
	UnrealizedPnl     float64    `json:"unrealizedPnL"`
	MarginBalance     float64    `json:"marginBalance"`
	AvailableBalance  float64    `json:"availableBalance"`
	MaintenanceMargin float64    `json:"maintenanceMargin"`
	Positions         []Position `json:"positions"`
}

// Account 读取实盘账户, 没有配置或者读取失败时全部返回 0
func (s *Service) Account(ctx context.Context) (Account, error) {
	empty := Account{Positions: []Position{}}
	if s.accounts == nil {
		return empty, nil
	}
	creds, err := s.credentials(ctx)
	if err != nil {
		return Account{}, err
	}
	info, err := s.accounts.Account(ctx, creds)
	switch {
	case errors.Is(err, engine.ErrNoCredentials):
		return empty, nil
	case err != nil:
		slog.Warn("fetch account balance", "error", err)
		return empty, nil
	}
	return Account{
		TotalBalance:      info.TotalBalance.InexactFloat64(),
		UnrealizedPnl:     info.UnrealizedPnl.InexactFloat64(),
		MarginBalance:     info.MarginBalance.InexactFloat64(),
		AvailableBalance:  info.AvailableBalance.InexactFloat64(),
		MaintenanceMargin: info.MaintenanceMargin.InexactFloat64(),
		Positions: lo.Map(info.Positions, func(p exchange.Position, _ int) Position {
			return Position{
				Symbol:        p.Symbol,
				Amount:        p.Amount.InexactFloat64(),
				EntryPrice:    p.EntryPrice.InexactFloat64(),
				UnrealizedPnl: p.UnrealizedPnl.InexactFloat64(),
			}
		}),
	}, nil
}
