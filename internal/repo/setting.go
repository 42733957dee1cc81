package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/KNICEX/quantflow/internal/entity"
	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GlobalConfig 全局设置, 以 json 形式存在 settings 表
type GlobalConfig struct {
	Exchange      ExchangeConfig `json:"exchange"`
	Risk          RiskConfig     `json:"risk"`
	Notifications NotifyConfig   `json:"notifications"`
}

type ExchangeConfig struct {
	ApiKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
	IsTestnet bool   `json:"isTestnet"`
}

type RiskConfig struct {
	MaxDailyLoss    float64 `json:"maxDailyLoss"`
	MaxPositionSize float64 `json:"maxPositionSize"`
}

type NotifyConfig struct {
	Email   string `json:"email"`
	Webhook string `json:"webhook"`
}

type SettingRepo interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	GlobalConfig(ctx context.Context) (GlobalConfig, error)
	SaveGlobalConfig(ctx context.Context, cfg GlobalConfig) error
}

type settingRepo struct {
	db *gorm.DB
}

func NewSettingRepo(db *gorm.DB) SettingRepo {
	return &settingRepo{
		db: db,
	}
}

func (r *settingRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var setting entity.Setting
	err := r.db.WithContext(ctx).Where(&entity.Setting{Key: key}).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

func (r *settingRepo) Put(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entity.Setting{Key: key, Value: value}).Error
}

// GlobalConfig 没有保存过时返回零值
func (r *settingRepo) GlobalConfig(ctx context.Context) (GlobalConfig, error) {
	raw, ok, err := r.Get(ctx, entity.SettingKeyGlobalConfig)
	if err != nil || !ok {
		return GlobalConfig{}, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return GlobalConfig{}, fmt.Errorf("decode %s: %w", entity.SettingKeyGlobalConfig, err)
	}
	return cfg, nil
}

func (r *settingRepo) SaveGlobalConfig(ctx context.Context, cfg GlobalConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return r.Put(ctx, entity.SettingKeyGlobalConfig, string(raw))
}
