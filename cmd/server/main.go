package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/washtrack/api/internal/cache"
	"github.com/washtrack/api/internal/config"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/logger"
	"github.com/washtrack/api/internal/mailer"
	"github.com/washtrack/api/internal/router"
	"github.com/washtrack/api/internal/server"
	"github.com/washtrack/api/internal/service"
	"github.com/washtrack/api/internal/ws"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to database")

	redisClient := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	store := cache.New(redisClient, cfg.Redis.CacheTTL)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	var m mailer.Mailer
	if cfg.SMTP.Host != "" {
		smtp, err := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}
		m = smtp
	} else {
		log.Warn("SMTP_HOST not set, verification emails will only be logged")
		m = mailer.NewLogMailer(log)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	queries := database.New(pool)
	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, store, hub)

	srv := server.New(cfg.Port, router.New(router.Deps{
		Config:   cfg,
		Queries:  queries,
		Orders:   orders,
		Verifier: service.NewVerificationService(store, m),
		Cache:    store,
		Hub:      hub,
		Logger:   log,
	}), log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
