package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketComparisonRanksBySize(t *testing.T) {
	wb := &fakeIndicator{available: true}
	svc := New(testServiceConfig(), Sources{WorldBank: wb}, nil)

	// Both markets resolve through the same fake; give them a value and
	// rank ties alphabetically.
	wb.latest = map[string]any{"value": float64(1e12), "date": "2023"}

	res, err := svc.MarketComparison(context.Background(), []string{"services", "manufacturing"}, "US")
	require.NoError(t, err)
	require.Len(t, res.Markets, 2)
	assert.Equal(t, []string{"manufacturing", "services"}, res.Ranking)
}

func TestMarketComparisonRequiresTwoMarkets(t *testing.T) {
	svc := New(testServiceConfig(), Sources{}, nil)
	_, err := svc.MarketComparison(context.Background(), []string{"one"}, "US")
	require.Error(t, err)
}

func TestValidateMarketDataAgreement(t *testing.T) {
	wb := &fakeIndicator{available: true, latest: map[string]any{"value": float64(100)}}
	fred := &fakeEcon{available: true, latest: map[string]any{"value": float64(110)}}
	svc := New(testServiceConfig(), Sources{WorldBank: wb, FRED: fred}, nil)

	res, err := svc.ValidateMarketData(context.Background(), "manufacturing", "US")
	require.NoError(t, err)
	require.Len(t, res.Estimates, 2)
	assert.InDelta(t, 105, res.Mean, 0.01)
	assert.InDelta(t, 10.0/105, res.Spread, 1e-9)
	assert.InDelta(t, 1-10.0/105, res.AgreementScore, 1e-9)
}

func TestValidateMarketDataNoEstimates(t *testing.T) {
	svc := New(testServiceConfig(), Sources{}, nil)

	res, err := svc.ValidateMarketData(context.Background(), "anything", "US")
	require.NoError(t, err)
	assert.Empty(t, res.Estimates)
	assert.Equal(t, 0.0, res.AgreementScore)
}

func TestMarketOpportunitiesScoring(t *testing.T) {
	searcher := &fakeSearcher{
		source: "census", available: true,
		results: []Industry{
			{IndustryID: "sized", Name: "software platforms", MarketSize: float64(5e9)},
			{IndustryID: "unsized", Name: "software platforms"},
		},
	}
	svc := New(testServiceConfig(), Sources{}, nil, WithSearchers(searcher))

	res, err := svc.MarketOpportunities(context.Background(), "software platforms", "US", 5)
	require.NoError(t, err)
	require.Len(t, res.Opportunities, 2)

	// The quantified market outranks the unsized one.
	assert.Equal(t, "sized", res.Opportunities[0].Industry.IndustryID)
	assert.InDelta(t, 1.0, res.Opportunities[0].OpportunityScore, 1e-9)
	assert.InDelta(t, 0.7, res.Opportunities[1].OpportunityScore, 1e-9)
}

func TestIndustryAnalysisComposition(t *testing.T) {
	searcher := &fakeSearcher{
		source: "census", available: true,
		results: []Industry{{IndustryID: "naics-5112", Name: "Software Publishers"}},
	}
	wb := &fakeIndicator{available: true, latest: map[string]any{"value": float64(2e12), "date": "2023"}}
	svc := New(testServiceConfig(), Sources{WorldBank: wb}, nil, WithSearchers(searcher))

	res, err := svc.IndustryAnalysis(context.Background(), "software", "US", true)
	require.NoError(t, err)
	assert.Len(t, res.RelatedIndustries, 1)
	require.NotNil(t, res.MarketSize)
	assert.Equal(t, float64(2e12), res.MarketSize.EstimatedMarketSize)
	assert.Empty(t, res.Errors)
}

func TestGenericQueryRouting(t *testing.T) {
	av := &fakeCompany{available: true, overview: map[string]any{"symbol": "AAPL"}}
	fred := &fakeEcon{available: true, latest: map[string]any{"value": 1.0}}
	svc := New(testServiceConfig(), Sources{AlphaVantage: av, FRED: fred}, nil)

	v, err := svc.GenericQuery(context.Background(), "alpha_vantage", "overview",
		map[string]any{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.NotNil(t, v)

	v, err = svc.GenericQuery(context.Background(), "fred", "market_size",
		map[string]any{"seriesId": "GDP", "region": "US"})
	require.NoError(t, err)
	assert.NotNil(t, v)

	_, err = svc.GenericQuery(context.Background(), "fred", "bogus", nil)
	require.Error(t, err)

	_, err = svc.GenericQuery(context.Background(), "not_a_source", "overview", nil)
	require.Error(t, err)
}
