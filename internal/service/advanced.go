package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// AnalysisResult combines a market size estimate with related
// industries from the multi-source search.
type AnalysisResult struct {
	Industry          string            `json:"industry"`
	Region            string            `json:"region"`
	MarketSize        *MarketSizeResult `json:"marketSize,omitempty"`
	RelatedIndustries []Industry        `json:"relatedIndustries"`
	Errors            []SourceError     `json:"errors"`
}

// IndustryAnalysis sizes an industry and surrounds it with related
// search results.
func (s *Service) IndustryAnalysis(ctx context.Context, industry, region string, includeMarketSize bool) (*AnalysisResult, error) {
	if strings.TrimSpace(industry) == "" {
		return nil, fmt.Errorf("analysis: industry is required")
	}
	if region == "" {
		region = "US"
	}

	res := &AnalysisResult{
		Industry:          industry,
		Region:            region,
		RelatedIndustries: []Industry{},
		Errors:            []SourceError{},
	}

	search, err := s.SearchIndustries(ctx, SearchRequest{
		Query: industry, Limit: 5, Geography: region,
	})
	if err != nil {
		res.Errors = append(res.Errors, SourceError{Source: "search", Message: err.Error()})
	} else {
		res.RelatedIndustries = search.Results
		res.Errors = append(res.Errors, search.Errors...)
	}

	if includeMarketSize {
		size, err := s.CalculateMarketSize(ctx, MarketSizeRequest{
			IndustryQuery:  industry,
			GeographyCodes: []string{region},
		})
		if err != nil {
			res.Errors = append(res.Errors, SourceError{Source: "market_size", Message: err.Error()})
		} else {
			res.MarketSize = size
		}
	}
	return res, nil
}

// IndustryData is the raw multi-source view behind industry_data: the
// full search result without relevance filtering.
func (s *Service) IndustryData(ctx context.Context, industry string, sources []string, limit int) (*SearchResult, error) {
	return s.SearchIndustries(ctx, SearchRequest{
		Query:   industry,
		Sources: sources,
		Limit:   limit,
	})
}

// MarketComparisonEntry is one market in a comparison.
type MarketComparisonEntry struct {
	Market string            `json:"market"`
	Result *MarketSizeResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// ComparisonResult ranks markets by estimated size.
type ComparisonResult struct {
	Region  string                  `json:"region"`
	Markets []MarketComparisonEntry `json:"markets"`
	Ranking []string                `json:"ranking"`
}

// MarketComparison sizes each market and ranks those with a numeric
// estimate, largest first. Per-market failures stay in the entry.
func (s *Service) MarketComparison(ctx context.Context, markets []string, region string) (*ComparisonResult, error) {
	if len(markets) < 2 {
		return nil, fmt.Errorf("comparison: at least two markets are required")
	}
	if region == "" {
		region = "US"
	}

	res := &ComparisonResult{Region: region, Ranking: []string{}}
	for _, m := range markets {
		entry := MarketComparisonEntry{Market: m}
		size, err := s.CalculateMarketSize(ctx, MarketSizeRequest{
			IndustryQuery:  m,
			GeographyCodes: []string{region},
		})
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Result = size
		}
		res.Markets = append(res.Markets, entry)
	}

	ranked := make([]MarketComparisonEntry, 0, len(res.Markets))
	for _, e := range res.Markets {
		if e.Result != nil && asFloat(e.Result.EstimatedMarketSize) != 0 {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a := asFloat(ranked[i].Result.EstimatedMarketSize)
		b := asFloat(ranked[j].Result.EstimatedMarketSize)
		if a != b {
			return a > b
		}
		return ranked[i].Market < ranked[j].Market
	})
	for _, e := range ranked {
		res.Ranking = append(res.Ranking, e.Market)
	}
	return res, nil
}

// ValidationResult reports cross-source agreement on a market estimate.
type ValidationResult struct {
	Query          string             `json:"query"`
	Estimates      map[string]float64 `json:"estimates"`
	Mean           float64            `json:"mean"`
	Spread         float64            `json:"spread"`
	AgreementScore float64            `json:"agreementScore"`
	Errors         []SourceError      `json:"errors"`
}

// ValidateMarketData sizes the query independently through the
// indicator sources and measures how closely they agree. Spread is
// (max-min)/mean; the agreement score is its complement clamped to
// [0, 1].
func (s *Service) ValidateMarketData(ctx context.Context, query, region string) (*ValidationResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("validation: query is required")
	}
	if region == "" {
		region = "US"
	}

	res := &ValidationResult{
		Query:     query,
		Estimates: map[string]float64{},
		Errors:    []SourceError{},
	}

	if s.src.WorldBank != nil && s.src.WorldBank.Available() {
		v, err := s.src.WorldBank.MarketSize(ctx, query, region)
		if err != nil {
			res.Errors = append(res.Errors, SourceError{Source: "world_bank", Message: err.Error()})
		} else if rec, ok := v.(map[string]any); ok {
			if f := asFloat(rec["value"]); f != 0 {
				res.Estimates["world_bank"] = f
			}
		}
	}
	if s.src.FRED != nil && s.src.FRED.Available() {
		if seriesID := fredRegionSeries[strings.ToUpper(region)]; seriesID != "" {
			v, err := s.src.FRED.MarketSize(ctx, seriesID, region)
			if err != nil {
				res.Errors = append(res.Errors, SourceError{Source: "fred", Message: err.Error()})
			} else if rec, ok := v.(map[string]any); ok {
				if f := asFloat(rec["value"]); f != 0 {
					res.Estimates["fred"] = f
				}
			}
		}
	}
	if naicsPattern.MatchString(query) && s.src.Census != nil && s.src.Census.Available() {
		var size MarketSizeResult
		if err := s.sizeFromCensus(ctx, query, "", &size); err != nil {
			res.Errors = append(res.Errors, SourceError{Source: "census", Message: err.Error()})
		} else if f := asFloat(size.EstimatedMarketSize); f != 0 {
			res.Estimates["census"] = f
		}
	}

	if len(res.Estimates) == 0 {
		return res, nil
	}

	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	for _, v := range res.Estimates {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	res.Mean = sum / float64(len(res.Estimates))
	if res.Mean != 0 {
		res.Spread = (hi - lo) / res.Mean
	}
	res.AgreementScore = math.Max(0, math.Min(1, 1-res.Spread))
	return res, nil
}

// Opportunity is one scored market opening.
type Opportunity struct {
	Industry         Industry `json:"industry"`
	OpportunityScore float64  `json:"opportunityScore"`
	Rationale        string   `json:"rationale"`
}

// OpportunitiesResult is the screened opportunity list.
type OpportunitiesResult struct {
	Query         string        `json:"query"`
	Opportunities []Opportunity `json:"opportunities"`
	Errors        []SourceError `json:"errors"`
}

// MarketOpportunities screens search results into a scored list.
// Relevance dominates; having a sized market adds a fixed bonus so
// quantified openings rank above speculative ones.
func (s *Service) MarketOpportunities(ctx context.Context, query, region string, limit int) (*OpportunitiesResult, error) {
	if limit <= 0 {
		limit = 5
	}

	search, err := s.SearchIndustries(ctx, SearchRequest{
		Query: query, Geography: region, Limit: limit * 2,
	})
	if err != nil {
		return nil, err
	}

	res := &OpportunitiesResult{
		Query:         query,
		Opportunities: []Opportunity{},
		Errors:        search.Errors,
	}
	for _, ind := range search.Results {
		score := ind.RelevanceScore * 0.7
		rationale := "matched by relevance"
		if asFloat(ind.MarketSize) > 0 {
			score += 0.3
			rationale = "matched by relevance with a quantified market size"
		}
		res.Opportunities = append(res.Opportunities, Opportunity{
			Industry:         ind,
			OpportunityScore: score,
			Rationale:        rationale,
		})
	}

	sort.SliceStable(res.Opportunities, func(i, j int) bool {
		a, b := res.Opportunities[i], res.Opportunities[j]
		if a.OpportunityScore != b.OpportunityScore {
			return a.OpportunityScore > b.OpportunityScore
		}
		return a.Industry.IndustryID < b.Industry.IndustryID
	})
	if len(res.Opportunities) > limit {
		res.Opportunities = res.Opportunities[:limit]
	}
	return res, nil
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}
