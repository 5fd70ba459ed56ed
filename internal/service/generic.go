package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/marketscope/marketscope/internal/upstream"
)

// GenericQuery routes a raw (source, operation, params) triple to the
// matching adapter method and returns its result verbatim. It backs the
// generic_data_query tool for callers who know exactly what they want
// from a provider.
func (s *Service) GenericQuery(ctx context.Context, source, operation string, params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	op := strings.ToLower(operation)

	switch strings.ToLower(source) {
	case "alpha_vantage":
		return s.alphaVantageQuery(ctx, op, params)
	case "bls":
		return s.blsQuery(ctx, op, params)
	case "census":
		return s.censusQuery(ctx, op, params)
	case "fred":
		return s.fredQuery(ctx, op, params)
	case "nasdaq":
		return s.nasdaqQuery(ctx, op, params)
	case "imf":
		return s.imfQuery(ctx, op, params)
	case "oecd":
		return s.oecdQuery(ctx, op, params)
	case "world_bank":
		return s.worldBankQuery(ctx, op, params)
	default:
		return nil, fmt.Errorf("query: unknown source %q", source)
	}
}

func (s *Service) alphaVantageQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.AlphaVantage == nil {
		return nil, fmt.Errorf("query: source alpha_vantage not configured")
	}
	switch op {
	case "overview":
		return s.src.AlphaVantage.CompanyOverview(ctx, pStr(p, "symbol"))
	case "symbol_search":
		return s.src.AlphaVantage.SearchSymbols(ctx, pStr(p, "keywords"))
	case "time_series":
		return s.src.AlphaVantage.TimeSeries(ctx, pStr(p, "function"), pStr(p, "symbol"))
	case "financials":
		return s.src.AlphaVantage.Financials(ctx, pStr(p, "function"), pStr(p, "symbol"))
	default:
		return nil, unknownOp("alpha_vantage", op)
	}
}

func (s *Service) blsQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.BLS == nil {
		return nil, fmt.Errorf("query: source bls not configured")
	}
	if op != "series" {
		return nil, unknownOp("bls", op)
	}
	return s.src.BLS.SeriesData(ctx, upstream.SeriesRequest{
		SeriesIDs:     pStrSlice(p, "seriesIds"),
		StartYear:     pStr(p, "startYear"),
		EndYear:       pStr(p, "endYear"),
		Catalog:       pBool(p, "catalog"),
		Calculations:  pBool(p, "calculations"),
		AnnualAverage: pBool(p, "annualAverage"),
	})
}

func (s *Service) censusQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.Census == nil {
		return nil, fmt.Errorf("query: source census not configured")
	}
	switch op {
	case "industry_data":
		return s.src.Census.IndustryData(ctx,
			pStr(p, "year"), pStr(p, "dataset"),
			pStrSlice(p, "variables"), pStr(p, "forGeography"),
			pStrMap(p, "filters"))
	case "market_size":
		return s.src.Census.MarketSize(ctx,
			pStr(p, "naicsCode"), pStr(p, "geography"),
			pStr(p, "variable"), pStr(p, "year"))
	default:
		return nil, unknownOp("census", op)
	}
}

func (s *Service) fredQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.FRED == nil {
		return nil, fmt.Errorf("query: source fred not configured")
	}
	switch op {
	case "observations":
		return s.src.FRED.SeriesObservations(ctx, upstream.ObservationsRequest{
			SeriesID:         pStr(p, "seriesId"),
			ObservationStart: pStr(p, "observationStart"),
			ObservationEnd:   pStr(p, "observationEnd"),
			Limit:            pInt(p, "limit"),
			Offset:           pInt(p, "offset"),
			SortOrder:        pStr(p, "sortOrder"),
		})
	case "market_size":
		return s.src.FRED.MarketSize(ctx, pStr(p, "seriesId"), pStr(p, "region"))
	default:
		return nil, unknownOp("fred", op)
	}
}

func (s *Service) nasdaqQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.Nasdaq == nil {
		return nil, fmt.Errorf("query: source nasdaq not configured")
	}
	switch op {
	case "dataset":
		return s.src.Nasdaq.DatasetTimeSeries(ctx, upstream.NasdaqRequest{
			Database:  pStr(p, "database"),
			Dataset:   pStr(p, "dataset"),
			Limit:     pInt(p, "limit"),
			Order:     pStr(p, "order"),
			StartDate: pStr(p, "startDate"),
			EndDate:   pStr(p, "endDate"),
			Collapse:  pStr(p, "collapse"),
			Transform: pStr(p, "transform"),
		})
	case "latest_value":
		return s.src.Nasdaq.LatestDatasetValue(ctx,
			pStr(p, "database"), pStr(p, "dataset"), pStr(p, "column"))
	default:
		return nil, unknownOp("nasdaq", op)
	}
}

func (s *Service) imfQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.IMF == nil {
		return nil, fmt.Errorf("query: source imf not configured")
	}
	switch op {
	case "dataset":
		return s.src.IMF.Dataset(ctx,
			pStr(p, "dataflowId"), pStr(p, "seriesKey"),
			pStr(p, "startPeriod"), pStr(p, "endPeriod"))
	case "latest_observation":
		return s.src.IMF.LatestObservation(ctx, pStr(p, "dataflowId"), pStr(p, "seriesKey"))
	default:
		return nil, unknownOp("imf", op)
	}
}

func (s *Service) oecdQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.OECD == nil {
		return nil, fmt.Errorf("query: source oecd not configured")
	}
	switch op {
	case "dataset":
		return s.src.OECD.Dataset(ctx, upstream.DatasetRequest{
			DatasetID:              pStr(p, "datasetId"),
			FilterExpression:       pStr(p, "filterExpression"),
			StartPeriod:            pStr(p, "startPeriod"),
			EndPeriod:              pStr(p, "endPeriod"),
			DimensionAtObservation: pStr(p, "dimensionAtObservation"),
		})
	case "latest_observation":
		return s.src.OECD.LatestObservation(ctx, pStr(p, "datasetId"), pStr(p, "filterExpression"))
	default:
		return nil, unknownOp("oecd", op)
	}
}

func (s *Service) worldBankQuery(ctx context.Context, op string, p map[string]any) (any, error) {
	if s.src.WorldBank == nil {
		return nil, fmt.Errorf("query: source world_bank not configured")
	}
	switch op {
	case "indicator":
		return s.src.WorldBank.IndicatorData(ctx,
			pStr(p, "countryCode"), pStr(p, "indicator"),
			pStr(p, "date"), pInt(p, "perPage"))
	case "market_size":
		return s.src.WorldBank.MarketSize(ctx, pStr(p, "industry"), pStr(p, "countryCode"))
	default:
		return nil, unknownOp("world_bank", op)
	}
}

func unknownOp(source, op string) error {
	return fmt.Errorf("query: source %s has no operation %q", source, op)
}

func pStr(p map[string]any, key string) string {
	return str(p[key])
}

func pInt(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func pBool(p map[string]any, key string) bool {
	b, _ := p[key].(bool)
	return b
}

func pStrSlice(p map[string]any, key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, str(e))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}

func pStrMap(p map[string]any, key string) map[string]string {
	raw, ok := p[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = str(v)
	}
	return out
}
