package repo

import (
	"context"
	"errors"

	"github.com/KNICEX/quantflow/internal/entity"
	"gorm.io/gorm"
)

var ErrStrategyNotFound = errors.New("strategy not found")

type StrategyRepo interface {
	Create(ctx context.Context, strategy entity.Strategy) error
	FindById(ctx context.Context, id string) (entity.Strategy, error)
	FindAll(ctx context.Context) ([]entity.Strategy, error)
	FindByStatus(ctx context.Context, status string) ([]entity.Strategy, error)
	Update(ctx context.Context, strategy entity.Strategy) error
	UpdateStatus(ctx context.Context, id string, status string) error
	Delete(ctx context.Context, id string) error
}

type strategyRepo struct {
	db *gorm.DB
}

func NewStrategyRepo(db *gorm.DB) StrategyRepo {
	return &strategyRepo{
		db: db,
	}
}

func (r *strategyRepo) Create(ctx context.Context, strategy entity.Strategy) error {
	return r.db.WithContext(ctx).Create(&strategy).Error
}

func (r *strategyRepo) FindById(ctx context.Context, id string) (entity.Strategy, error) {
	var strategy entity.Strategy
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&strategy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.Strategy{}, ErrStrategyNotFound
	}
	if err != nil {
		return entity.Strategy{}, err
	}
	return strategy, nil
}

func (r *strategyRepo) FindAll(ctx context.Context) ([]entity.Strategy, error) {
	var strategies []entity.Strategy
	err := r.db.WithContext(ctx).Order("created_at asc").Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

func (r *strategyRepo) FindByStatus(ctx context.Context, status string) ([]entity.Strategy, error) {
	var strategies []entity.Strategy
	err := r.db.WithContext(ctx).Where("status = ?", status).Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

// Update 覆盖除 id 和创建时间外的所有字段, 零值也会写入
func (r *strategyRepo) Update(ctx context.Context, strategy entity.Strategy) error {
	res := r.db.WithContext(ctx).Model(&entity.Strategy{}).
		Where("id = ?", strategy.Id).
		Select("*").Omit("id", "created_at").
		Updates(&strategy)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStrategyNotFound
	}
	return nil
}

func (r *strategyRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	res := r.db.WithContext(ctx).Model(&entity.Strategy{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStrategyNotFound
	}
	return nil
}

func (r *strategyRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Strategy{}).Error
}
