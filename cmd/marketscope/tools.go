package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	"github.com/marketscope/marketscope/internal/availability"
	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/notify"
	"github.com/marketscope/marketscope/internal/registry"
	"github.com/marketscope/marketscope/internal/service"
	"github.com/marketscope/marketscope/internal/upstream"
)

// cmdTools prints the tool catalog with per-tool availability, for a
// quick check of which keys are configured.
func cmdTools() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	c := cache.New()
	adapters := []upstream.Adapter{
		upstream.NewAlphaVantage(cfg, c),
		upstream.NewBLS(cfg, c),
		upstream.NewCensus(cfg, c),
		upstream.NewFRED(cfg, c),
		upstream.NewNasdaq(cfg, c),
		upstream.NewIMF(cfg, c),
		upstream.NewOECD(cfg, c),
		upstream.NewWorldBank(cfg, c),
	}
	checker := availability.New(adapters...)

	svc := service.New(cfg, service.Sources{}, notify.NewBus())
	reg := registry.New(svc)

	enabled, total := checker.Summary()
	fmt.Printf("%d/%d data sources enabled\n\n", enabled, total)

	for _, t := range reg.Tools() {
		s := checker.Tool(t)
		mark := "ok"
		if !s.Available {
			mark = "unavailable"
		}
		fmt.Printf("%-36s %s\n", t.Name, mark)
		if len(s.MissingKeys) > 0 {
			fmt.Printf("%-36s   missing: %s\n", "", strings.Join(s.MissingKeys, ", "))
		}
		for _, w := range s.Warnings {
			fmt.Printf("%-36s   warning: %s\n", "", w)
		}
	}
	return nil
}
