package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/rosupd/bancho/internal/bancho"
	"github.com/rosupd/bancho/internal/cache"
	"github.com/rosupd/bancho/internal/config"
	"github.com/rosupd/bancho/internal/db"
	"github.com/rosupd/bancho/internal/geo"
	"github.com/rosupd/bancho/internal/metrics"
	"github.com/rosupd/bancho/internal/pp"
	"github.com/rosupd/bancho/internal/web"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	if err := run(ctx, log); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if _, err := maxprocs.Set(); err != nil {
		log.Warn().Err(err).Msg("setting GOMAXPROCS")
	}
	log.Info().Str("server", cfg.ServerName).Str("domain", cfg.Domain).Msg("bancho starting")

	database, err := db.Open(ctx, cfg.MySQLDSN(), cfg.MySQLPoolSize)
	if err != nil {
		return fmt.Errorf("connecting to mysql: %w", err)
	}
	defer database.Close()

	redis, err := cache.Open(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	resolver := geo.NewResolver(cfg.IP2LocationAPIKey, log)
	ppClient := pp.NewClient(cfg.PerformanceServiceURL, cfg.PerformanceServiceTimeout, log)

	hub, err := bancho.New(cfg, log, database, redis, resolver, ppClient, m)
	if err != nil {
		return fmt.Errorf("building hub: %w", err)
	}

	server := web.New(cfg, log, hub, m, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return hub.RunPubSub(gctx) })
	g.Go(func() error { return hub.RunTimeoutSweep(gctx) })
	g.Go(func() error { return hub.RunSpamReset(gctx) })
	g.Go(func() error { return hub.RunMatchCleanup(gctx) })

	log.Info().Msg("bancho running")
	return g.Wait()
}
