package entity

import "time"

// Log 策略运行日志
type Log struct {
	Id         int64     `gorm:"primaryKey;autoIncrement"`
	StrategyId string    `gorm:"index;size:36"`
	Timestamp  time.Time `gorm:"index"`
	Level      string
	Message    string
}
