package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KNICEX/quantflow/internal/entity"
	"github.com/KNICEX/quantflow/internal/repo"
	"github.com/KNICEX/quantflow/internal/schedule"
	"github.com/KNICEX/quantflow/internal/service/engine"
	"github.com/KNICEX/quantflow/internal/service/exchange"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	defaultScheduleStart = "00:00"
	defaultScheduleEnd   = "23:59"
	logTimeLayout        = "15:04:05"
	// 删除时等待 worker 退出的上限, 超时后转为后台清理日志
	deleteWait = 3 * time.Second
)

// Service 策略的增删改查, 状态变化驱动 engine 启停
type Service struct {
	strategyRepo repo.StrategyRepo
	logRepo      repo.LogRepo
	settingRepo  repo.SettingRepo
	registry     engine.Registry
	generator    *Generator
	accounts     AccountSource
	locks        *keyLock
}

type ServiceOption func(*Service)

// WithAccountSource enables live account balances. Without it Account
// always reports zeros.
func WithAccountSource(src AccountSource) ServiceOption {
	return func(s *Service) {
		s.accounts = src
	}
}

func NewService(strategyRepo repo.StrategyRepo, logRepo repo.LogRepo, settingRepo repo.SettingRepo,
	registry engine.Registry, generator *Generator, opts ...ServiceOption) *Service {
	s := &Service{
		strategyRepo: strategyRepo,
		logRepo:      logRepo,
		settingRepo:  settingRepo,
		registry:     registry,
		generator:    generator,
		locks:        newKeyLock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, req CreateReq) (Strategy, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Strategy{}, fmt.Errorf("%w: strategy name is required", ErrInvalidArgument)
	}
	if req.Symbol != "" {
		if _, err := exchange.ParseTradingPair(req.Symbol); err != nil {
			return Strategy{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	st := entity.Strategy{
		Id:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Code:          req.Code,
		Symbol:        req.Symbol,
		Status:        entity.StrategyStatusStopped,
		ScheduleStart: lo.Ternary(req.ScheduleStart == "", defaultScheduleStart, req.ScheduleStart),
		ScheduleEnd:   lo.Ternary(req.ScheduleEnd == "", defaultScheduleEnd, req.ScheduleEnd),
		PnlDay:        "0",
	}
	warnSchedule(st)
	if err := s.strategyRepo.Create(ctx, st); err != nil {
		return Strategy{}, err
	}
	return s.Get(ctx, st.Id)
}

func warnSchedule(st entity.Strategy) {
	window := schedule.Window{Start: st.ScheduleStart, End: st.ScheduleEnd}
	if err := window.Validate(); err != nil {
		slog.Warn("strategy schedule is invalid and will not limit running", "strategy_id", st.Id, "error", err)
	}
}

func (s *Service) Get(ctx context.Context, id string) (Strategy, error) {
	st, err := s.strategyRepo.FindById(ctx, id)
	if err != nil {
		return Strategy{}, err
	}
	return s.withLogs(ctx, st)
}

// List returns every strategy with its most recent logs.
func (s *Service) List(ctx context.Context) ([]Strategy, error) {
	strategies, err := s.strategyRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]Strategy, 0, len(strategies))
	for _, st := range strategies {
		item, err := s.withLogs(ctx, st)
		if err != nil {
			return nil, err
		}
		res = append(res, item)
	}
	return res, nil
}

func (s *Service) withLogs(ctx context.Context, st entity.Strategy) (Strategy, error) {
	logs, err := s.logRepo.FindRecent(ctx, st.Id, recentLogLimit)
	if err != nil {
		return Strategy{}, fmt.Errorf("load logs of %s: %w", st.Id, err)
	}
	return Strategy{
		Id:            st.Id,
		Name:          st.Name,
		Description:   st.Description,
		Code:          st.Code,
		Symbol:        st.Symbol,
		Status:        st.Status,
		ScheduleStart: st.ScheduleStart,
		ScheduleEnd:   st.ScheduleEnd,
		PnlDay:        st.PnlDay,
		Logs: lo.Map(logs, func(item entity.Log, _ int) Log {
			return Log{
				Timestamp: item.Timestamp.Format(logTimeLayout),
				Level:     item.Level,
				Message:   item.Message,
			}
		}),
	}, nil
}

// SetStatus RUNNING 启动 worker, 其他状态停止 worker
func (s *Service) SetStatus(ctx context.Context, id string, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !validStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	st, err := s.strategyRepo.FindById(ctx, id)
	if err != nil {
		return err
	}
	if status == entity.StrategyStatusRunning {
		creds, err := s.credentials(ctx)
		if err != nil {
			return err
		}
		s.registry.Start(specOf(st), creds)
	} else {
		s.registry.Stop(id)
	}
	return s.strategyRepo.UpdateStatus(ctx, id, status)
}

func (s *Service) Update(ctx context.Context, id string, req UpdateReq) (Strategy, error) {
	unlock := s.locks.Lock(id)
	st, err := s.update(ctx, id, req)
	unlock()
	if err != nil {
		return Strategy{}, err
	}
	return s.withLogs(ctx, st)
}

func (s *Service) update(ctx context.Context, id string, req UpdateReq) (entity.Strategy, error) {
	st, err := s.strategyRepo.FindById(ctx, id)
	if err != nil {
		return entity.Strategy{}, err
	}
	if req.Symbol != nil && *req.Symbol != "" {
		if _, err := exchange.ParseTradingPair(*req.Symbol); err != nil {
			return entity.Strategy{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&st.Name, req.Name)
	apply(&st.Description, req.Description)
	apply(&st.Code, req.Code)
	apply(&st.Symbol, req.Symbol)
	apply(&st.ScheduleStart, req.ScheduleStart)
	apply(&st.ScheduleEnd, req.ScheduleEnd)
	warnSchedule(st)

	if err := s.strategyRepo.Update(ctx, st); err != nil {
		return entity.Strategy{}, err
	}
	if s.registry.Running(id) {
		creds, err := s.credentials(ctx)
		if err != nil {
			return entity.Strategy{}, err
		}
		s.registry.Start(specOf(st), creds)
	}
	return st, nil
}

// Delete stops the worker, then removes the strategy and its logs. Logs the
// worker writes while stopping are removed once it has exited.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	done := s.registry.Stop(id)
	if err := s.strategyRepo.Delete(ctx, id); err != nil {
		return err
	}

	select {
	case <-done:
		return s.logRepo.DeleteByStrategy(ctx, id)
	case <-ctx.Done():
	case <-time.After(deleteWait):
	}
	if err := s.logRepo.DeleteByStrategy(context.WithoutCancel(ctx), id); err != nil {
		return err
	}
	go func() {
		<-done
		if err := s.logRepo.DeleteByStrategy(context.Background(), id); err != nil {
			slog.Warn("delete logs of stopped strategy", "strategy_id", id, "error", err)
		}
	}()
	return nil
}

func (s *Service) credentials(ctx context.Context) (exchange.Credentials, error) {
	cfg, err := s.settingRepo.GlobalConfig(ctx)
	if err != nil {
		return exchange.Credentials{}, err
	}
	return exchange.Credentials{
		ApiKey:    cfg.Exchange.ApiKey,
		SecretKey: cfg.Exchange.SecretKey,
		Testnet:   cfg.Exchange.IsTestnet,
	}, nil
}

// Resume 进程启动时恢复上次处于 RUNNING 的策略
func (s *Service) Resume(ctx context.Context) (int, error) {
	strategies, err := s.strategyRepo.FindByStatus(ctx, entity.StrategyStatusRunning)
	if err != nil {
		return 0, err
	}
	if len(strategies) == 0 {
		return 0, nil
	}
	creds, err := s.credentials(ctx)
	if err != nil {
		return 0, err
	}
	for _, st := range strategies {
		unlock := s.locks.Lock(st.Id)
		s.registry.Start(specOf(st), creds)
		unlock()
		slog.Info("strategy resumed", "strategy_id", st.Id, "name", st.Name)
	}
	return len(strategies), nil
}

// HandleExit persists the status of a worker that ended on its own.
func (s *Service) HandleExit(id string, final engine.State) {
	unlock := s.locks.Lock(id)
	defer unlock()
	if s.registry.Running(id) {
		// 已经被重新启动
		return
	}
	status := entity.StrategyStatusStopped
	if final == engine.StateFailed {
		status = entity.StrategyStatusError
	}
	if err := s.strategyRepo.UpdateStatus(context.Background(), id, status); err != nil {
		slog.Warn("persist strategy exit status", "strategy_id", id, "status", status, "error", err)
	}
}

func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	return s.generator.Generate(ctx, prompt)
}

func specOf(st entity.Strategy) engine.Spec {
	return engine.Spec{
		Id:            st.Id,
		Name:          st.Name,
		Code:          st.Code,
		ScheduleStart: st.ScheduleStart,
		ScheduleEnd:   st.ScheduleEnd,
		Symbol:        st.Symbol,
	}
}
