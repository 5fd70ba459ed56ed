// Package service orchestrates the source adapters behind the
// analytical tools: multi-source industry search, the TAM/SAM family of
// deterministic calculators, market-size routing heuristics, and the
// generic source query. Caching lives in the adapters, so every method
// here is idempotent with respect to its arguments inside the TTL.
package service

import (
	"context"

	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/notify"
	"github.com/marketscope/marketscope/internal/upstream"
)

// CompanySource is the Alpha Vantage capability surface the service uses.
type CompanySource interface {
	Available() bool
	CompanyOverview(ctx context.Context, symbol string) (any, error)
	SearchSymbols(ctx context.Context, keywords string) (any, error)
	TimeSeries(ctx context.Context, function, symbol string) (any, error)
	Financials(ctx context.Context, function, symbol string) (any, error)
}

// LaborSource is the BLS capability surface.
type LaborSource interface {
	Available() bool
	SeriesData(ctx context.Context, req upstream.SeriesRequest) (any, error)
}

// CensusSource is the Census Bureau capability surface.
type CensusSource interface {
	Available() bool
	IndustryData(ctx context.Context, year, datasetPath string, variables []string, forGeography string, filters map[string]string) (any, error)
	MarketSize(ctx context.Context, naicsCode, geography, variable, year string) (any, error)
}

// EconSource is the FRED capability surface.
type EconSource interface {
	Available() bool
	SeriesObservations(ctx context.Context, req upstream.ObservationsRequest) (any, error)
	MarketSize(ctx context.Context, seriesID, region string) (any, error)
}

// DatasetSource is the Nasdaq Data Link capability surface.
type DatasetSource interface {
	Available() bool
	DatasetTimeSeries(ctx context.Context, req upstream.NasdaqRequest) (any, error)
	LatestDatasetValue(ctx context.Context, database, dataset, column string) (any, error)
}

// FundSource is the IMF capability surface.
type FundSource interface {
	Available() bool
	Dataset(ctx context.Context, dataflowID, seriesKey, startPeriod, endPeriod string) (any, error)
	LatestObservation(ctx context.Context, dataflowID, seriesKey string) (any, error)
}

// StatsSource is the OECD capability surface.
type StatsSource interface {
	Available() bool
	Dataset(ctx context.Context, req upstream.DatasetRequest) (any, error)
	LatestObservation(ctx context.Context, datasetID, filterExpression string) (any, error)
}

// IndicatorSource is the World Bank capability surface.
type IndicatorSource interface {
	Available() bool
	IndicatorData(ctx context.Context, countryCode, indicator, date string, perPage int) (any, error)
	MarketSize(ctx context.Context, industry, countryCode string) (any, error)
}

// Sources bundles one adapter per upstream provider.
type Sources struct {
	AlphaVantage CompanySource
	BLS          LaborSource
	Census       CensusSource
	FRED         EconSource
	Nasdaq       DatasetSource
	IMF          FundSource
	OECD         StatsSource
	WorldBank    IndicatorSource
}

// Service is the data service. One instance serves all tool calls.
type Service struct {
	src       Sources
	cfg       *config.Config
	bus       *notify.Bus
	searchers []Searcher
}

// Option configures a Service.
type Option func(*Service)

// WithSearchers replaces the built-in industry searchers, mainly so
// tests can inject deterministic fakes.
func WithSearchers(s ...Searcher) Option {
	return func(svc *Service) { svc.searchers = s }
}

// New creates the data service over the given adapters.
func New(cfg *config.Config, src Sources, bus *notify.Bus, opts ...Option) *Service {
	svc := &Service{src: src, cfg: cfg, bus: bus}
	svc.searchers = defaultSearchers(src)
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// event publishes a business notification, tolerating a nil bus.
func (s *Service) event(t notify.EventType, tool string, payload map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(notify.Event{Type: t, Tool: tool, Payload: payload})
}
