package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/marketscope/marketscope/internal/notify"
)

var (
	symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)
	naicsPattern  = regexp.MustCompile(`^\d{2,6}$`)
)

// MarketSizeRequest selects the market to size and constrains the
// lookup.
type MarketSizeRequest struct {
	IndustryQuery  string
	GeographyCodes []string
	IndicatorCodes []string
	Year           string
	Methodology    string
}

// MarketSizeResult is the aggregated estimate. EstimatedMarketSize is
// nil when no source had data.
type MarketSizeResult struct {
	EstimatedMarketSize any      `json:"estimatedMarketSize"`
	Currency            string   `json:"currency,omitempty"`
	Year                string   `json:"year,omitempty"`
	DataSourcesUsed     []string `json:"dataSourcesUsed"`
	ConfidenceScore     float64  `json:"confidenceScore"`
	MethodologyUsed     string   `json:"methodologyUsed"`
}

// CalculateMarketSize routes the query by shape: stock symbols go to
// Alpha Vantage market cap, NAICS codes to Census County Business
// Patterns, anything else to the World Bank then FRED indicator path.
func (s *Service) CalculateMarketSize(ctx context.Context, req MarketSizeRequest) (*MarketSizeResult, error) {
	query := strings.TrimSpace(req.IndustryQuery)
	region := "US"
	if len(req.GeographyCodes) > 0 {
		region = req.GeographyCodes[0]
	}

	res := &MarketSizeResult{DataSourcesUsed: []string{}}

	switch {
	case symbolPattern.MatchString(query) && s.src.AlphaVantage != nil && s.src.AlphaVantage.Available():
		if err := s.sizeFromMarketCap(ctx, query, res); err != nil {
			return nil, err
		}

	case naicsPattern.MatchString(query) && s.src.Census != nil && s.src.Census.Available():
		if err := s.sizeFromCensus(ctx, query, req.Year, res); err != nil {
			return nil, err
		}

	default:
		if err := s.sizeFromIndicators(ctx, query, region, req.IndicatorCodes, res); err != nil {
			return nil, err
		}
	}

	if res.EstimatedMarketSize == nil {
		res.ConfidenceScore = 0
		res.MethodologyUsed = "none"
	}
	if s.cfg != nil && res.ConfidenceScore < s.cfg.LowConfidenceFloor {
		s.event(notify.EventLowConfidence, "", map[string]any{
			"query":           query,
			"confidenceScore": res.ConfidenceScore,
		})
	}
	return res, nil
}

func (s *Service) sizeFromMarketCap(ctx context.Context, symbol string, res *MarketSizeResult) error {
	v, err := s.src.AlphaVantage.CompanyOverview(ctx, symbol)
	if err != nil {
		return err
	}
	rec, ok := v.(map[string]any)
	if !ok || rec["marketCapitalization"] == nil {
		return nil
	}

	res.EstimatedMarketSize = rec["marketCapitalization"]
	res.Currency = "USD"
	res.DataSourcesUsed = []string{"alpha_vantage"}
	res.ConfidenceScore = 0.9
	res.MethodologyUsed = "company market capitalization"
	return nil
}

func (s *Service) sizeFromCensus(ctx context.Context, naics, year string, res *MarketSizeResult) error {
	if year == "" {
		year = "2021"
	}
	v, err := s.src.Census.MarketSize(ctx, naics, "", "PAYANN", year)
	if err != nil {
		return err
	}
	rows, ok := v.([]map[string]any)
	if !ok || len(rows) == 0 {
		return nil
	}

	// PAYANN is annual payroll in thousands of dollars.
	if payann, ok := rows[0]["PAYANN"].(int64); ok {
		res.EstimatedMarketSize = float64(payann) * 1000
	} else {
		res.EstimatedMarketSize = rows[0]["PAYANN"]
	}
	res.Currency = "USD"
	res.Year = year
	res.DataSourcesUsed = []string{"census"}
	res.ConfidenceScore = 0.6
	res.MethodologyUsed = "NAICS annual payroll proxy"
	return nil
}

// fredRegionSeries maps a region to its headline GDP series.
var fredRegionSeries = map[string]string{
	"US":  "GDP",
	"USA": "GDP",
}

func (s *Service) sizeFromIndicators(ctx context.Context, industry, region string, indicatorCodes []string, res *MarketSizeResult) error {
	if s.src.WorldBank != nil && s.src.WorldBank.Available() {
		v, err := s.src.WorldBank.MarketSize(ctx, industry, region)
		if err != nil {
			return err
		}
		if rec, ok := v.(map[string]any); ok && rec["value"] != nil {
			res.EstimatedMarketSize = rec["value"]
			res.Currency = "USD"
			res.Year = str(rec["date"])
			res.DataSourcesUsed = []string{"world_bank"}
			res.ConfidenceScore = 0.5
			res.MethodologyUsed = "World Bank indicator"
			return nil
		}
	}

	if s.src.FRED == nil || !s.src.FRED.Available() {
		return nil
	}
	seriesID := ""
	if len(indicatorCodes) > 0 {
		seriesID = indicatorCodes[0]
	} else {
		seriesID = fredRegionSeries[strings.ToUpper(region)]
	}
	if seriesID == "" {
		return nil
	}

	v, err := s.src.FRED.MarketSize(ctx, seriesID, region)
	if err != nil {
		return err
	}
	if rec, ok := v.(map[string]any); ok && rec["value"] != nil {
		res.EstimatedMarketSize = rec["value"]
		res.Currency = "USD"
		res.Year = str(rec["date"])
		res.DataSourcesUsed = []string{"fred"}
		res.ConfidenceScore = 0.4
		res.MethodologyUsed = "FRED economic series"
	}
	return nil
}
