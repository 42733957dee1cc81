package strategy

import (
	"errors"

	"github.com/KNICEX/quantflow/internal/entity"
)

const recentLogLimit = 50

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidStatus     = errors.New("invalid strategy status")
	ErrGeneratorDisabled = errors.New("code generator not configured")
)

type CreateReq struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Code          string `json:"code"`
	Symbol        string `json:"symbol"`
	ScheduleStart string `json:"scheduleStart"`
	ScheduleEnd   string `json:"scheduleEnd"`
}

// UpdateReq 只更新非空字段
type UpdateReq struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Code          *string `json:"code"`
	Symbol        *string `json:"symbol"`
	ScheduleStart *string `json:"scheduleStart"`
	ScheduleEnd   *string `json:"scheduleEnd"`
}

type Log struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

type Strategy struct {
	Id            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Code          string `json:"code"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	ScheduleStart string `json:"scheduleStart"`
	ScheduleEnd   string `json:"scheduleEnd"`
	PnlDay        string `json:"pnlDay"`
	Logs          []Log  `json:"logs"`
}

func validStatus(status string) bool {
	switch status {
	case entity.StrategyStatusRunning, entity.StrategyStatusStopped, entity.StrategyStatusError,
		"PAUSED", "SCHEDULED":
		return true
	}
	return false
}
