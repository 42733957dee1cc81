package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/KNICEX/quantflow/internal/entity"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type RepoSuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context

	strategyRepo StrategyRepo
	logRepo      LogRepo
	settingRepo  SettingRepo
}

func TestRepoSuite(t *testing.T) {
	suite.Run(t, new(RepoSuite))
}

func (s *RepoSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", s.T().Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	s.Require().NoError(err)
	s.Require().NoError(InitTables(db))
	s.db = db
	s.ctx = context.Background()
	s.strategyRepo = NewStrategyRepo(db)
	s.logRepo = NewLogRepo(db)
	s.settingRepo = NewSettingRepo(db)
}

func (s *RepoSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())
}

func (s *RepoSuite) TestStrategyDefaults() {
	s.Require().NoError(s.strategyRepo.Create(s.ctx, entity.Strategy{Id: "a", Name: "alpha", Code: "function onTick(t) {}"}))
	got, err := s.strategyRepo.FindById(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(entity.StrategyStatusStopped, got.Status)
	s.Equal("00:00", got.ScheduleStart)
	s.Equal("23:59", got.ScheduleEnd)
}

func (s *RepoSuite) TestStrategyStatus() {
	s.Require().NoError(s.strategyRepo.Create(s.ctx, entity.Strategy{Id: "a", Name: "alpha"}))
	s.Require().NoError(s.strategyRepo.Create(s.ctx, entity.Strategy{Id: "b", Name: "beta"}))
	s.Require().NoError(s.strategyRepo.UpdateStatus(s.ctx, "b", entity.StrategyStatusRunning))

	running, err := s.strategyRepo.FindByStatus(s.ctx, entity.StrategyStatusRunning)
	s.Require().NoError(err)
	s.Require().Len(running, 1)
	s.Equal("b", running[0].Id)

	s.ErrorIs(s.strategyRepo.UpdateStatus(s.ctx, "missing", entity.StrategyStatusRunning), ErrStrategyNotFound)
	_, err = s.strategyRepo.FindById(s.ctx, "missing")
	s.ErrorIs(err, ErrStrategyNotFound)
}

func (s *RepoSuite) TestStrategyUpdateAndDelete() {
	s.Require().NoError(s.strategyRepo.Create(s.ctx, entity.Strategy{Id: "a", Name: "alpha", Description: "old", Code: "v1"}))
	got, err := s.strategyRepo.FindById(s.ctx, "a")
	s.Require().NoError(err)
	got.Code = "v2"
	got.Description = ""
	s.Require().NoError(s.strategyRepo.Update(s.ctx, got))

	got, err = s.strategyRepo.FindById(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal("v2", got.Code)
	s.Equal("", got.Description)
	s.Equal("alpha", got.Name)
	s.ErrorIs(s.strategyRepo.Update(s.ctx, entity.Strategy{Id: "missing"}), ErrStrategyNotFound)

	s.Require().NoError(s.strategyRepo.Delete(s.ctx, "a"))
	all, err := s.strategyRepo.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *RepoSuite) TestLogsRecentOrder() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		s.Require().NoError(s.logRepo.Create(s.ctx, entity.Log{
			StrategyId: "a",
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Level:      "INFO",
			Message:    fmt.Sprintf("msg %d", i),
		}))
	}
	s.Require().NoError(s.logRepo.Create(s.ctx, entity.Log{StrategyId: "b", Timestamp: base, Level: "INFO", Message: "other"}))

	logs, err := s.logRepo.FindRecent(s.ctx, "a", 50)
	s.Require().NoError(err)
	s.Require().Len(logs, 50)
	s.Equal("msg 10", logs[0].Message)
	s.Equal("msg 59", logs[49].Message)

	s.Require().NoError(s.logRepo.DeleteByStrategy(s.ctx, "a"))
	logs, err = s.logRepo.FindRecent(s.ctx, "a", 50)
	s.Require().NoError(err)
	s.Empty(logs)
	logs, err = s.logRepo.FindRecent(s.ctx, "b", 50)
	s.Require().NoError(err)
	s.Len(logs, 1)
}

func (s *RepoSuite) TestGlobalConfig() {
	cfg, err := s.settingRepo.GlobalConfig(s.ctx)
	s.Require().NoError(err)
	s.Equal(GlobalConfig{}, cfg)

	want := GlobalConfig{Exchange: ExchangeConfig{ApiKey: "k", SecretKey: "s", IsTestnet: true}}
	s.Require().NoError(s.settingRepo.SaveGlobalConfig(s.ctx, want))
	want.Exchange.ApiKey = "k2"
	s.Require().NoError(s.settingRepo.SaveGlobalConfig(s.ctx, want))

	cfg, err = s.settingRepo.GlobalConfig(s.ctx)
	s.Require().NoError(err)
	s.Equal(want, cfg)

	raw, ok, err := s.settingRepo.Get(s.ctx, entity.SettingKeyGlobalConfig)
	s.Require().NoError(err)
	s.True(ok)
	s.Contains(raw, `"apiKey":"k2"`)
}

func (s *RepoSuite) TestGlobalConfigCorrupt() {
	s.Require().NoError(s.settingRepo.Put(s.ctx, entity.SettingKeyGlobalConfig, "{not json"))
	_, err := s.settingRepo.GlobalConfig(s.ctx)
	s.Error(err)
}
