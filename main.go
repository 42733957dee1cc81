package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KNICEX/quantflow/internal/repo"
	"github.com/KNICEX/quantflow/internal/service/journal"
	"github.com/KNICEX/quantflow/internal/service/strategy"
	"github.com/KNICEX/quantflow/internal/web"
	"github.com/KNICEX/quantflow/ioc"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper() {
	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
}

func main() {
	initViper()
	logger := ioc.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mp, shutdownTelemetry := ioc.InitTelemetry(ctx)
	db := ioc.InitDB()

	strategyRepo := repo.NewStrategyRepo(db)
	logRepo := repo.NewLogRepo(db)
	settingRepo := repo.NewSettingRepo(db)

	sink := journal.Tee(journal.NewRepoSink(logRepo), journal.NewSlogSink(logger))
	connector := ioc.InitConnector()
	manager := ioc.InitEngine(connector, sink, mp)
	generator := ioc.InitCodeGenerator(ioc.InitGeminiCli())

	svc := strategy.NewService(strategyRepo, logRepo, settingRepo, manager, generator,
		strategy.WithAccountSource(connector))
	manager.SetOnExit(svc.HandleExit)

	if n, err := svc.Resume(ctx); err != nil {
		slog.Error("resume strategies", "error", err)
	} else if n > 0 {
		slog.Info("strategies resumed", "count", n)
	}

	if viper.GetString("log.level") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	addr := viper.GetString("http.addr")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:    addr,
		Handler: web.NewEngine(web.NewHandler(svc), logger),
	}
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown", "error", err)
	}
	// 只停止 worker, 数据库里的 RUNNING 状态保留到下次启动恢复
	if err := manager.Shutdown(shutdownCtx); err != nil {
		slog.Warn("engine shutdown", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown", "error", err)
	}
}
