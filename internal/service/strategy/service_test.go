package strategy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/KNICEX/quantflow/internal/entity"
	"github.com/KNICEX/quantflow/internal/repo"
	"github.com/KNICEX/quantflow/internal/service/engine"
	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/KNICEX/quantflow/internal/service/llm"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const tickCode = `function onTick(t) { log('tick', t.symbol); }`

// 固定在中午, 默认的 00:00-23:59 窗口不会因为跑测试的时刻而关闭
func noon() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
}

type fakeLLM struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeLLM) AskOnce(_ context.Context, q llm.Question) (llm.Answer, error) {
	f.asked = append(f.asked, q.Content)
	return llm.Answer{Content: f.answer}, f.err
}

func (f *fakeLLM) BeginChat(context.Context) (llm.Session, error) {
	return nil, errors.New("not supported")
}

type ServiceSuite struct {
	suite.Suite
	ctx context.Context
	db  *gorm.DB

	strategyRepo repo.StrategyRepo
	logRepo      repo.LogRepo
	settingRepo  repo.SettingRepo
	manager      *engine.Manager
	llm          *fakeLLM
	svc          *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	// 内存库只能有一个连接
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(repo.InitTables(db))

	s.ctx = context.Background()
	s.db = db
	s.strategyRepo = repo.NewStrategyRepo(db)
	s.logRepo = repo.NewLogRepo(db)
	s.settingRepo = repo.NewSettingRepo(db)
	s.manager = engine.NewManager(
		engine.WithConfig(engine.Config{TickInterval: 10 * time.Millisecond, Clock: noon}),
		engine.WithSink(journal.NewRepoSink(s.logRepo)),
	)
	s.llm = &fakeLLM{}
	s.svc = NewService(s.strategyRepo, s.logRepo, s.settingRepo, s.manager, NewGenerator(s.llm))
	s.manager.SetOnExit(s.svc.HandleExit)
}

func (s *ServiceSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().NoError(s.manager.Shutdown(ctx))
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())
}

func (s *ServiceSuite) create(name, code string) Strategy {
	st, err := s.svc.Create(s.ctx, CreateReq{Name: name, Code: code})
	s.Require().NoError(err)
	return st
}

func (s *ServiceSuite) status(id string) string {
	st, err := s.strategyRepo.FindById(s.ctx, id)
	s.Require().NoError(err)
	return st.Status
}

func (s *ServiceSuite) countLogs(id, level, message string) int {
	logs, err := s.logRepo.FindRecent(s.ctx, id, 1000)
	s.Require().NoError(err)
	n := 0
	for _, l := range logs {
		if l.Level == level && l.Message == message {
			n++
		}
	}
	return n
}

func (s *ServiceSuite) totalLogs(id string) int {
	logs, err := s.logRepo.FindRecent(s.ctx, id, 1000)
	s.Require().NoError(err)
	return len(logs)
}

func (s *ServiceSuite) eventually(cond func() bool, msg string) {
	s.Require().Eventually(cond, 5*time.Second, 10*time.Millisecond, msg)
}

func (s *ServiceSuite) TestCreateDefaults() {
	st := s.create("alpha", tickCode)
	s.NotEmpty(st.Id)
	s.Equal(entity.StrategyStatusStopped, st.Status)
	s.Equal("00:00", st.ScheduleStart)
	s.Equal("23:59", st.ScheduleEnd)
	s.Empty(st.Logs)

	_, err := s.svc.Create(s.ctx, CreateReq{Name: " "})
	s.ErrorIs(err, ErrInvalidArgument)
	_, err = s.svc.Create(s.ctx, CreateReq{Name: "x", Symbol: "???"})
	s.ErrorIs(err, ErrInvalidArgument)
}

func (s *ServiceSuite) TestRunAndStop() {
	st := s.create("alpha", tickCode)
	s.Require().NoError(s.svc.SetStatus(s.ctx, st.Id, "running"))
	s.True(s.manager.Running(st.Id))
	s.Equal(entity.StrategyStatusRunning, s.status(st.Id))

	s.eventually(func() bool { return s.countLogs(st.Id, "INFO", "tick BTC/USDT") >= 2 }, "ticks persisted")

	s.Require().NoError(s.svc.SetStatus(s.ctx, st.Id, entity.StrategyStatusStopped))
	s.False(s.manager.Running(st.Id))
	s.Equal(entity.StrategyStatusStopped, s.status(st.Id))
	s.eventually(func() bool { return s.countLogs(st.Id, "INFO", "Strategy stopped") == 1 }, "stopped log")

	got, err := s.svc.Get(s.ctx, st.Id)
	s.Require().NoError(err)
	s.Require().NotEmpty(got.Logs)
	s.Equal("Starting strategy runner", got.Logs[0].Message)
	_, err = time.Parse("15:04:05", got.Logs[0].Timestamp)
	s.NoError(err)
}

func (s *ServiceSuite) TestSetStatusErrors() {
	s.ErrorIs(s.svc.SetStatus(s.ctx, "missing", entity.StrategyStatusRunning), repo.ErrStrategyNotFound)
	st := s.create("alpha", tickCode)
	s.ErrorIs(s.svc.SetStatus(s.ctx, st.Id, "DANCING"), ErrInvalidStatus)
	s.False(s.manager.Running(st.Id))
}

func (s *ServiceSuite) TestCompileFailureMarksError() {
	st := s.create("broken", `function tick() {}`)
	s.Require().NoError(s.svc.SetStatus(s.ctx, st.Id, entity.StrategyStatusRunning))
	s.eventually(func() bool { return s.status(st.Id) == entity.StrategyStatusError }, "status error")
	s.False(s.manager.Running(st.Id))
	s.Equal(1, s.countLogs(st.Id, "ERROR", "Strategy missing required onTick function"))
}

func (s *ServiceSuite) TestWindowExitMarksStopped() {
	st, err := s.svc.Create(s.ctx, CreateReq{Name: "night", Code: tickCode})
	s.Require().NoError(err)
	start, end := "14:00", "15:00"
	_, err = s.svc.Update(s.ctx, st.Id, UpdateReq{ScheduleStart: &start, ScheduleEnd: &end})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.SetStatus(s.ctx, st.Id, entity.StrategyStatusRunning))
	s.eventually(func() bool { return s.status(st.Id) == entity.StrategyStatusStopped }, "status stopped")
	s.Equal(1, s.countLogs(st.Id, "INFO", "Outside schedule window, stopping strategy"))
}

func (s *ServiceSuite) TestUpdateRestartsRunning() {
	st := s.create("alpha", tickCode)
	s.Require().NoError(s.svc.SetStatus(s.ctx, st.Id, entity.StrategyStatusRunning))
	s.eventually(func() bool { return s.countLogs(st.Id, "INFO", "tick BTC/USDT") >= 1 }, "v1 ticking")

	code := `function onTick(t) { log('v2'); }`
	got, err := s.svc.Update(s.ctx, st.Id, UpdateReq{Code: &code})
	s.Require().NoError(err)
	s.Equal(code, got.Code)
	s.True(s.manager.Running(st.Id))
	s.eventually(func() bool { return s.countLogs(st.Id, "INFO", "v2") >= 1 }, "v2 ticking")
}

func (s *ServiceSuite) TestDelete() {
	st := s.create("alpha", tickCode)
	s.Require().NoError(s.svc.SetStatus(s.ctx, st.Id, entity.StrategyStatusRunning))
	s.eventually(func() bool { return s.countLogs(st.Id, "INFO", "tick BTC/USDT") >= 1 }, "ticking")

	s.Require().NoError(s.svc.Delete(s.ctx, st.Id))
	s.False(s.manager.Running(st.Id))
	_, err := s.svc.Get(s.ctx, st.Id)
	s.ErrorIs(err, repo.ErrStrategyNotFound)
	// worker 退出时写的 "Strategy stopped" 也要被清掉
	s.Zero(s.totalLogs(st.Id))
	time.Sleep(50 * time.Millisecond)
	s.Zero(s.totalLogs(st.Id))
}

func (s *ServiceSuite) TestResume() {
	a := s.create("a", tickCode)
	b := s.create("b", tickCode)
	s.Require().NoError(s.strategyRepo.UpdateStatus(s.ctx, a.Id, entity.StrategyStatusRunning))

	n, err := s.svc.Resume(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.True(s.manager.Running(a.Id))
	s.False(s.manager.Running(b.Id))
}

func (s *ServiceSuite) TestListIncludesRecentLogs() {
	st := s.create("alpha", tickCode)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		s.Require().NoError(s.logRepo.Create(s.ctx, entity.Log{
			StrategyId: st.Id, Timestamp: base.Add(time.Duration(i) * time.Second), Level: "INFO", Message: fmt.Sprint(i),
		}))
	}
	list, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Len(list[0].Logs, recentLogLimit)
	s.Equal("10", list[0].Logs[0].Message)
	s.Equal("09:00:10", list[0].Logs[0].Timestamp)
}

func (s *ServiceSuite) TestSettingsFeedCredentials() {
	cfg := repo.GlobalConfig{Exchange: repo.ExchangeConfig{ApiKey: "k", SecretKey: "s", IsTestnet: true}}
	s.Require().NoError(s.svc.SaveSettings(s.ctx, cfg))
	got, err := s.svc.Settings(s.ctx)
	s.Require().NoError(err)
	s.Equal(cfg, got)

	creds, err := s.svc.credentials(s.ctx)
	s.Require().NoError(err)
	s.True(creds.Present())
	s.True(creds.Testnet)
}

func (s *ServiceSuite) TestSaveMaskedSecretKeepsStored() {
	cfg := repo.GlobalConfig{Exchange: repo.ExchangeConfig{ApiKey: "k", SecretKey: "secret-0123456789"}}
	s.Require().NoError(s.svc.SaveSettings(s.ctx, cfg))

	shown := MaskSettings(cfg)
	s.Equal("****6789", shown.Exchange.SecretKey)
	shown.Exchange.ApiKey = "k2"
	s.Require().NoError(s.svc.SaveSettings(s.ctx, shown))

	creds, err := s.svc.credentials(s.ctx)
	s.Require().NoError(err)
	s.Equal("k2", creds.ApiKey)
	s.Equal("secret-0123456789", creds.SecretKey)
}

func TestMaskSecret(t *testing.T) {
	testCases := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "short", secret: "abc", want: "****"},
		{name: "long", secret: "abcdefghijkl", want: "****ijkl"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaskSecret(tc.secret))
		})
	}
}

func (s *ServiceSuite) TestGenerate() {
	s.llm.answer = "```javascript\nfunction onTick(t) {}\n```"
	code, err := s.svc.Generate(s.ctx, "buy the dip")
	s.Require().NoError(err)
	s.Equal("function onTick(t) {}", code)
	s.Equal([]string{"buy the dip"}, s.llm.asked)

	_, err = s.svc.Generate(s.ctx, "  ")
	s.ErrorIs(err, ErrInvalidArgument)

	s.llm.err = errors.New("quota")
	_, err = s.svc.Generate(s.ctx, "x")
	s.Error(err)

	disabled := NewService(s.strategyRepo, s.logRepo, s.settingRepo, s.manager, nil)
	_, err = disabled.Generate(s.ctx, "x")
	s.ErrorIs(err, ErrGeneratorDisabled)
}

type fakeAccounts struct {
	info  exchange.AccountInfo
	err   error
	creds []exchange.Credentials
}

func (f *fakeAccounts) Account(_ context.Context, creds exchange.Credentials) (exchange.AccountInfo, error) {
	f.creds = append(f.creds, creds)
	return f.info, f.err
}

func (s *ServiceSuite) TestAccount() {
	src := &fakeAccounts{info: exchange.AccountInfo{
		TotalBalance:     decimal.RequireFromString("1000.5"),
		AvailableBalance: decimal.RequireFromString("900"),
		UnrealizedPnl:    decimal.RequireFromString("-1.25"),
		Positions: []exchange.Position{
			{Symbol: "BTC/USDT", Amount: decimal.RequireFromString("-0.01"), EntryPrice: decimal.NewFromInt(60000)},
		},
	}}
	svc := NewService(s.strategyRepo, s.logRepo, s.settingRepo, s.manager, NewGenerator(s.llm), WithAccountSource(src))
	cfg := repo.GlobalConfig{Exchange: repo.ExchangeConfig{ApiKey: "k", SecretKey: "s", IsTestnet: true}}
	s.Require().NoError(svc.SaveSettings(s.ctx, cfg))

	got, err := svc.Account(s.ctx)
	s.Require().NoError(err)
	s.Equal(1000.5, got.TotalBalance)
	s.Equal(900.0, got.AvailableBalance)
	s.Equal(-1.25, got.UnrealizedPnl)
	s.Zero(got.MaintenanceMargin)
	s.Require().Len(got.Positions, 1)
	s.Equal(Position{Symbol: "BTC/USDT", Amount: -0.01, EntryPrice: 60000}, got.Positions[0])
	s.Require().Len(src.creds, 1)
	s.True(src.creds[0].Testnet)
}

func (s *ServiceSuite) TestAccountFallsBackToZeros() {
	testCases := []struct {
		name string
		svc  func() *Service
	}{
		{
			name: "no source",
			svc:  func() *Service { return s.svc },
		},
		{
			name: "exchange error",
			svc: func() *Service {
				src := &fakeAccounts{err: &exchange.Error{Op: "account", Code: -2015}}
				return NewService(s.strategyRepo, s.logRepo, s.settingRepo, s.manager, NewGenerator(s.llm), WithAccountSource(src))
			},
		},
		{
			name: "no credentials",
			svc: func() *Service {
				src := engine.NewConnector(engine.WithDialer(func(context.Context, exchange.Credentials) (exchange.Adapter, error) {
					return nil, errors.New("should not dial")
				}))
				return NewService(s.strategyRepo, s.logRepo, s.settingRepo, s.manager, NewGenerator(s.llm), WithAccountSource(src))
			},
		},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			got, err := tc.svc().Account(s.ctx)
			s.Require().NoError(err)
			s.Equal(Account{Positions: []Position{}}, got)

			b, err := json.Marshal(got)
			s.Require().NoError(err)
			s.Contains(string(b), `"positions":[]`)
		})
	}
}
