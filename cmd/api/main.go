package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialer-platform/internal/analytics"
	"dialer-platform/internal/audit"
	"dialer-platform/internal/automation"
	"dialer-platform/internal/config"
	"dialer-platform/internal/dispatch"
	"dialer-platform/internal/leads"
	"dialer-platform/internal/scheduler"
	"dialer-platform/internal/settings"
	"dialer-platform/internal/tracker"
	"dialer-platform/pkg/logger"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var rdb *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: addr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
	}

	// Stores and services
	leadStore := leads.NewPostgresStore(db)
	leadSvc := leads.NewService(leadStore)
	settingsSvc := settings.NewService(settings.NewPostgresRepo(db))
	events := audit.NewService(audit.NewPostgresRepo(db))

	provider := dispatch.NewLogProvider(log)

	schedSvc := scheduler.NewService(leadStore, settingsSvc, provider, log).WithEvents(events)
	trackSvc := tracker.NewService(leadStore, log).WithEvents(events)

	if rdb != nil {
		trackSvc = trackSvc.WithIdempotencyGuard(tracker.NewRedisIdempotencyGuard(rdb, 24*time.Hour))
		if cfg.Dialer.StrictSlots {
			guard := scheduler.NewRedisSlotGuard(rdb, cfg.Dialer.SlotTTL)
			schedSvc = schedSvc.WithSlotGuard(guard)
			trackSvc = trackSvc.WithSlotReleaser(guard)
		}
	} else {
		trackSvc = trackSvc.WithIdempotencyGuard(tracker.NewMemoryIdempotencyGuard())
	}
	if cfg.Dialer.RequeueSoftFailures {
		trackSvc = trackSvc.WithRequeuePolicy(settingsSvc)
	}

	analyticsSvc := analytics.NewService(leadStore, analytics.CostModel{
		MinutesPerAttempt: cfg.Cost.MinutesPerAttempt,
		CreditsPerAttempt: cfg.Cost.CreditsPerAttempt,
	}).WithAppointments(analytics.NewPostgresAppointments(db))

	// Automation loop (optional)
	if cfg.Dialer.Schedule != "" {
		runner, err := automation.NewRunner(cfg.Dialer.Schedule, schedSvc, settingsSvc, cfg.Dialer.PassTimeout, log)
		if err != nil {
			log.Error("automation init failed", "err", err)
			os.Exit(1)
		}
		if err := runner.Start(rootCtx); err != nil {
			log.Error("automation start failed", "err", err)
			os.Exit(1)
		}
		defer runner.Stop()
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		db:        db,
		leads:     leadSvc,
		leadStore: leadStore,
		settings:  settingsSvc,
		scheduler: schedSvc,
		tracker:   trackSvc,
		analytics: analyticsSvc,
		webhook:   cfg.Dialer.WebhookSecret,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
