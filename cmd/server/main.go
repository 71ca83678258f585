package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/curatehub/curatehub/config"
	"github.com/curatehub/curatehub/internal/api"
	"github.com/curatehub/curatehub/internal/api/handler"
	"github.com/curatehub/curatehub/internal/distribute"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/internal/service"
	"github.com/curatehub/curatehub/internal/source"
	"github.com/curatehub/curatehub/internal/transform"
	"github.com/curatehub/curatehub/pkg/database"
	"github.com/curatehub/curatehub/pkg/logger"
	"github.com/curatehub/curatehub/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Server.Mode, cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg)
	if err != nil {
		logger.Error("tracing init failed", zap.Error(err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// 插件注册表
	transforms := transform.NewRegistry()
	transform.RegisterBuiltins(transforms)

	rssStore := distribute.NewRSSStore(0)
	distributors := distribute.NewRegistry()
	distributors.Register("rss", distribute.NewRSS(rssStore))
	distributors.Register("webhook", distribute.NewWebhook())
	if cfg.Telegram.Token != "" {
		tg, err := distribute.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			logger.Error("telegram init failed", zap.Error(err))
			os.Exit(1)
		}
		distributors.Register("telegram", tg)
	}

	sources := source.NewRegistry()
	if cfg.Source.SearchURL != "" {
		sources.Register("twitter", source.NewHTTPSearch(cfg.Source.SearchURL, cfg.Source.APIKey, cfg.Source.RatePerSecond))
	}

	// 仓储与服务，显式注入
	feedRepo := repository.NewFeedRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	modRepo := repository.NewModerationRepository(db)
	cursorRepo := repository.NewCursorRepository(db)
	quota := repository.NewQuotaCounter(rdb)

	processor := service.NewProcessor(transforms, distributors)
	subSvc := service.NewSubmissionService(subRepo, feedRepo, quota, processor, cfg.Quota.DailySubmissionLimit)
	modSvc := service.NewModerationService(subRepo, feedRepo, processor)
	events := service.NewEventHandler(subSvc, modSvc)

	poller := service.NewPoller(feedRepo, cursorRepo, sources, events, cfg.Poller)
	if err := poller.Start(ctx); err != nil {
		logger.Error("poller start failed", zap.Error(err))
		os.Exit(1)
	}

	h := handler.New(feedRepo, subRepo, modRepo, modSvc, rssStore)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.NewRouter(cfg, h)}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	poller.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
