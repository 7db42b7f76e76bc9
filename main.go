package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoapi/handlers"
	"todoapi/utils"

	"github.com/charmbracelet/log"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal("load config", "err", err)
	}
	utils.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	log.Info("starting", "environment", cfg.Env, "addr", cfg.Addr)

	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal("invalid config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := utils.OpenDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		log.Fatal("failed to connect to database", "err", err)
	}
	defer dbPool.Close()

	var limiter handlers.Limiter = utils.NewMemoryLimiter(cfg.Limits)
	if cfg.RedisURL != "" {
		redisPool, err := utils.OpenRedisPool(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to redis", "err", err)
		}
		defer redisPool.Close()
		limiter = utils.NewRedisLimiter(redisPool, cfg.Limits)
		log.Info("rate limits stored in redis")
	}
	for _, l := range cfg.Limits {
		log.Info("rate limit", "limit", l.String())
	}

	router := handlers.NewRouter(utils.NewTodoStore(dbPool), limiter, handlers.RouterOptions{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		TrustedProxies: cfg.Proxies,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}
}
