package repo

import (
	"context"

	"github.com/KNICEX/quantflow/internal/entity"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type LogRepo interface {
	Create(ctx context.Context, log entity.Log) error
	// FindRecent returns the newest limit logs of a strategy, oldest first.
	FindRecent(ctx context.Context, strategyId string, limit int) ([]entity.Log, error)
	DeleteByStrategy(ctx context.Context, strategyId string) error
}

type logRepo struct {
	db *gorm.DB
}

func NewLogRepo(db *gorm.DB) LogRepo {
	return &logRepo{
		db: db,
	}
}

func (r *logRepo) Create(ctx context.Context, log entity.Log) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

func (r *logRepo) FindRecent(ctx context.Context, strategyId string, limit int) ([]entity.Log, error) {
	var logs []entity.Log
	err := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyId).
		Order("id desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return lo.Reverse(logs), nil
}

func (r *logRepo) DeleteByStrategy(ctx context.Context, strategyId string) error {
	return r.db.WithContext(ctx).Where("strategy_id = ?", strategyId).Delete(&entity.Log{}).Error
}
