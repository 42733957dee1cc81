package ioc

import (
	"github.com/KNICEX/quantflow/internal/repo"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB() *gorm.DB {
	type Config struct {
		DSN   string `mapstructure:"dsn"`
		Debug bool   `mapstructure:"debug"`
	}

	cfg := Config{DSN: "quantflow.db?_busy_timeout=5000&_journal_mode=WAL"}
	if err := viper.UnmarshalKey("db", &cfg); err != nil {
		panic(err)
	}

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.Debug {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	// sqlite 单写, 多个 worker 同时写日志时避免 database is locked
	sqlDB.SetMaxOpenConns(1)

	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	return db
}
