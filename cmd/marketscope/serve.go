package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/marketscope/marketscope/internal/availability"
	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/dispatch"
	"github.com/marketscope/marketscope/internal/gateway"
	"github.com/marketscope/marketscope/internal/notify"
	"github.com/marketscope/marketscope/internal/ratelimit"
	"github.com/marketscope/marketscope/internal/registry"
	"github.com/marketscope/marketscope/internal/service"
	"github.com/marketscope/marketscope/internal/upstream"
)

func cmdServe(_ []string) error {
	// A .env file is a development convenience; its absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout carries the protocol, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cacheOpts []cache.Option
	if cfg.CacheMaxEntries > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxEntries(cfg.CacheMaxEntries))
	}
	if cfg.CachePath != "" {
		tier, err := cache.OpenSQLiteTier(ctx, cfg.CachePath)
		if err != nil {
			return fmt.Errorf("open cache db: %w", err)
		}
		defer tier.Close()
		cacheOpts = append(cacheOpts, cache.WithTier(tier))
		slog.Info("cache persistence enabled", "path", cfg.CachePath)
	}
	c := cache.New(cacheOpts...)
	c.StartSweeper(ctx, 10*time.Minute)

	av := upstream.NewAlphaVantage(cfg, c)
	bls := upstream.NewBLS(cfg, c)
	census := upstream.NewCensus(cfg, c)
	fred := upstream.NewFRED(cfg, c)
	nasdaq := upstream.NewNasdaq(cfg, c)
	imf := upstream.NewIMF(cfg, c)
	oecd := upstream.NewOECD(cfg, c)
	wb := upstream.NewWorldBank(cfg, c)

	bus := notify.NewBus()
	go notify.LogSink(bus)

	svc := service.New(cfg, service.Sources{
		AlphaVantage: av,
		BLS:          bls,
		Census:       census,
		FRED:         fred,
		Nasdaq:       nasdaq,
		IMF:          imf,
		OECD:         oecd,
		WorldBank:    wb,
	}, bus)

	reg := registry.New(svc)
	disp, err := dispatch.New(cfg, reg, ratelimit.New(), bus)
	if err != nil {
		return err
	}

	checker := availability.New(av, bls, census, fred, nasdaq, imf, oecd, wb)
	checker.LogStartup()

	srv := gateway.NewServer(reg, disp, checker, bus, gateway.WithCacheStats(c))
	slog.Info("marketscope serving", "transport", "stdio", "tools", reg.Len(), "env", cfg.Env)
	return srv.RunStdio(ctx)
}
