package service

import (
	"context"

	"github.com/marketscope/marketscope/internal/upstream"
)

// fakeCompany stubs the Alpha Vantage surface.
type fakeCompany struct {
	available  bool
	overview   any
	financials any
	matches    any
	err        error
	calls      int
}

func (f *fakeCompany) Available() bool { return f.available }

func (f *fakeCompany) CompanyOverview(ctx context.Context, symbol string) (any, error) {
	f.calls++
	return f.overview, f.err
}

func (f *fakeCompany) SearchSymbols(ctx context.Context, keywords string) (any, error) {
	f.calls++
	return f.matches, f.err
}

func (f *fakeCompany) TimeSeries(ctx context.Context, function, symbol string) (any, error) {
	f.calls++
	return nil, f.err
}

func (f *fakeCompany) Financials(ctx context.Context, function, symbol string) (any, error) {
	f.calls++
	return f.financials, f.err
}

// fakeCensus stubs the Census surface.
type fakeCensus struct {
	available bool
	rows      []map[string]any
	err       error
}

func (f *fakeCensus) Available() bool { return f.available }

func (f *fakeCensus) IndustryData(ctx context.Context, year, datasetPath string, variables []string, forGeography string, filters map[string]string) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeCensus) MarketSize(ctx context.Context, naicsCode, geography, variable, year string) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

// fakeEcon stubs the FRED surface.
type fakeEcon struct {
	available bool
	latest    map[string]any
	err       error
}

func (f *fakeEcon) Available() bool { return f.available }

func (f *fakeEcon) SeriesObservations(ctx context.Context, req upstream.ObservationsRequest) (any, error) {
	return nil, f.err
}

func (f *fakeEcon) MarketSize(ctx context.Context, seriesID, region string) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.latest == nil {
		return nil, nil
	}
	return f.latest, nil
}

// fakeIndicator stubs the World Bank surface.
type fakeIndicator struct {
	available bool
	latest    map[string]any
	err       error
}

func (f *fakeIndicator) Available() bool { return f.available }

func (f *fakeIndicator) IndicatorData(ctx context.Context, countryCode, indicator, date string, perPage int) (any, error) {
	return nil, f.err
}

func (f *fakeIndicator) MarketSize(ctx context.Context, industry, countryCode string) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.latest == nil {
		return nil, nil
	}
	return f.latest, nil
}
