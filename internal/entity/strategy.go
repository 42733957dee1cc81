package entity

import "time"

// Strategy 用户策略
type Strategy struct {
	Id            string `gorm:"primaryKey;size:36"`
	Name          string
	Description   string
	Code          string
	Symbol        string
	Status        string `gorm:"index;default:STOPPED"`
	ScheduleStart string `gorm:"default:00:00"`
	ScheduleEnd   string `gorm:"default:23:59"`
	PnlDay        string `gorm:"default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	StrategyStatusRunning = "RUNNING"
	StrategyStatusStopped = "STOPPED"
	StrategyStatusError   = "ERROR"
)
