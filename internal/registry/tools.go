package registry

import (
	"context"

	"github.com/marketscope/marketscope/internal/config"
	"github.com/marketscope/marketscope/internal/service"
)

// buildTools assembles the full 28-tool catalog: thirteen direct
// data-source tools, four basic analytical tools, and eleven advanced
// business tools.
func buildTools(svc *service.Service) []*Tool {
	var tools []*Tool
	tools = append(tools, directTools(svc)...)
	tools = append(tools, basicTools(svc)...)
	tools = append(tools, advancedTools(svc)...)
	return tools
}

func directTools(svc *service.Service) []*Tool {
	return []*Tool{
		{
			Name:        "alphaVantage_getCompanyOverview",
			Description: "Fetch company fundamentals (market cap, sector, EPS, P/E) from Alpha Vantage.",
			Adapters:    []config.Source{config.SourceAlphaVantage},
			Params: map[string]*Param{
				"symbol": {Type: "string", Default: "AAPL", Pattern: `^[A-Za-z.\-]{1,10}$`,
					Description: "Stock ticker symbol."},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "alpha_vantage", "overview", args)
			},
		},
		{
			Name:        "alphaVantage_searchSymbols",
			Description: "Search listed securities by keyword via Alpha Vantage SYMBOL_SEARCH.",
			Adapters:    []config.Source{config.SourceAlphaVantage},
			Params: map[string]*Param{
				"keywords": {Type: "string", Default: "technology",
					Description: "Free-text search keywords."},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "alpha_vantage", "symbol_search", args)
			},
		},
		{
			Name:        "bls_getSeriesData",
			Description: "Fetch Bureau of Labor Statistics time series (batched).",
			Adapters:    []config.Source{config.SourceBLS},
			Params: map[string]*Param{
				"seriesIds": {Type: "array", Items: &Param{Type: "string"},
					Default:     []any{"CES0000000001"},
					Description: "BLS series identifiers."},
				"startYear":     {Type: "string", Default: "", Description: "First year of the window."},
				"endYear":       {Type: "string", Default: "", Description: "Last year of the window."},
				"catalog":       {Type: "boolean", Default: false},
				"calculations":  {Type: "boolean", Default: false},
				"annualAverage": {Type: "boolean", Default: false},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "bls", "series", args)
			},
		},
		{
			Name:        "census_fetchIndustryData",
			Description: "Query a Census Bureau dataset; rows are reshaped into records.",
			Adapters:    []config.Source{config.SourceCensus},
			Params: map[string]*Param{
				"year":    {Type: "string", Default: "2021"},
				"dataset": {Type: "string", Default: "cbp", Description: "Dataset path, e.g. cbp or acs/acs5."},
				"variables": {Type: "array", Items: &Param{Type: "string"},
					Default: []any{"EMP", "PAYANN", "ESTAB"}},
				"forGeography": {Type: "string", Default: "us:*"},
				"filters": {Type: "object", Default: map[string]any{},
					Description: "Extra query predicates, e.g. {\"NAICS2017\": \"5112\"}."},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "census", "industry_data", args)
			},
		},
		{
			Name:        "census_fetchMarketSize",
			Description: "Size a NAICS industry with County Business Patterns data.",
			Adapters:    []config.Source{config.SourceCensus},
			Params: map[string]*Param{
				"naicsCode": {Type: "string", Default: "5112", Pattern: `^\d{2,6}$`},
				"geography": {Type: "string", Default: "us:*"},
				"variable": {Type: "string", Default: "EMP",
					Enum: []any{"EMP", "PAYANN", "ESTAB"}},
				"year": {Type: "string", Default: "2021"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "census", "market_size", args)
			},
		},
		{
			Name:        "fred_getSeriesObservations",
			Description: "Fetch observations for a FRED economic series.",
			Adapters:    []config.Source{config.SourceFRED},
			Params: map[string]*Param{
				"seriesId":         {Type: "string", Default: "GDP"},
				"observationStart": {Type: "string", Default: ""},
				"observationEnd":   {Type: "string", Default: ""},
				"limit":            {Type: "integer", Default: float64(100), Minimum: f(1), Maximum: f(100000)},
				"offset":           {Type: "integer", Default: float64(0), Minimum: f(0)},
				"sortOrder":        {Type: "string", Default: "asc", Enum: []any{"asc", "desc"}},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "fred", "observations", args)
			},
		},
		{
			Name:        "imf_getDataset",
			Description: "Fetch an IMF dataflow slice (SDMX-JSON Compact, flattened).",
			Adapters:    []config.Source{config.SourceIMF},
			Params: map[string]*Param{
				"dataflowId":  {Type: "string", Default: "IFS"},
				"seriesKey":   {Type: "string", Default: "M.US.PMP_IX"},
				"startPeriod": {Type: "string", Default: ""},
				"endPeriod":   {Type: "string", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "imf", "dataset", args)
			},
		},
		{
			Name:        "imf_getLatestObservation",
			Description: "Fetch the most recent observation of an IMF dataflow slice.",
			Adapters:    []config.Source{config.SourceIMF},
			Params: map[string]*Param{
				"dataflowId": {Type: "string", Default: "IFS"},
				"seriesKey":  {Type: "string", Default: "M.US.PMP_IX"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "imf", "latest_observation", args)
			},
		},
		{
			Name:        "nasdaq_getDatasetTimeSeries",
			Description: "Fetch a Nasdaq Data Link dataset window.",
			Adapters:    []config.Source{config.SourceNasdaq},
			Params: map[string]*Param{
				"database":  {Type: "string", Default: "LBMA"},
				"dataset":   {Type: "string", Default: "GOLD"},
				"limit":     {Type: "integer", Default: float64(100), Minimum: f(1), Maximum: f(10000)},
				"order":     {Type: "string", Default: "desc", Enum: []any{"asc", "desc"}},
				"startDate": {Type: "string", Default: ""},
				"endDate":   {Type: "string", Default: ""},
				"collapse":  {Type: "string", Default: ""},
				"transform": {Type: "string", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "nasdaq", "dataset", args)
			},
		},
		{
			Name:        "nasdaq_getLatestDatasetValue",
			Description: "Fetch the newest value of one column in a Nasdaq Data Link dataset.",
			Adapters:    []config.Source{config.SourceNasdaq},
			Params: map[string]*Param{
				"database": {Type: "string", Default: "LBMA"},
				"dataset":  {Type: "string", Default: "GOLD"},
				"column":   {Type: "string", Default: "USD (AM)"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "nasdaq", "latest_value", args)
			},
		},
		{
			Name:        "oecd_getDataset",
			Description: "Fetch an OECD dataset slice (SDMX-JSON, flattened).",
			Adapters:    []config.Source{config.SourceOECD},
			Params: map[string]*Param{
				"datasetId":              {Type: "string", Default: "QNA"},
				"filterExpression":       {Type: "string", Default: ""},
				"startPeriod":            {Type: "string", Default: ""},
				"endPeriod":              {Type: "string", Default: ""},
				"dimensionAtObservation": {Type: "string", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "oecd", "dataset", args)
			},
		},
		{
			Name:        "oecd_getLatestObservation",
			Description: "Fetch the most recent observation of an OECD dataset slice.",
			Adapters:    []config.Source{config.SourceOECD},
			Params: map[string]*Param{
				"datasetId":        {Type: "string", Default: "QNA"},
				"filterExpression": {Type: "string", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "oecd", "latest_observation", args)
			},
		},
		{
			Name:        "worldBank_getIndicatorData",
			Description: "Fetch World Bank development indicator observations for a country.",
			Adapters:    []config.Source{config.SourceWorldBank},
			Params: map[string]*Param{
				"countryCode": {Type: "string", Default: "US"},
				"indicator":   {Type: "string", Default: "NY.GDP.MKTP.CD"},
				"date":        {Type: "string", Default: "", Description: "Year or year range, e.g. 2015:2023."},
				"perPage":     {Type: "integer", Default: float64(10), Minimum: f(1), Maximum: f(1000)},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx, "world_bank", "indicator", args)
			},
		},
	}
}

func basicTools(svc *service.Service) []*Tool {
	return []*Tool{
		{
			Name:        "industry_search",
			Description: "Search industries across every configured data source with relevance ranking.",
			Params: map[string]*Param{
				"query": {Type: "string", Default: "technology"},
				"sources": {Type: "array", Items: &Param{Type: "string"}, Default: []any{},
					Description: "Restrict to these sources; empty searches all."},
				"limit":             {Type: "integer", Default: float64(10), Minimum: f(1), Maximum: f(50)},
				"minRelevanceScore": {Type: "number", Default: 0.3, Minimum: f(0), Maximum: f(1)},
				"geographyFilter":   {Type: "string", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.SearchIndustries(ctx, service.SearchRequest{
					Query:        argStr(args, "query"),
					Sources:      argStrSlice(args, "sources"),
					Limit:        argInt(args, "limit"),
					MinRelevance: argFloat(args, "minRelevanceScore"),
					Geography:    argStr(args, "geographyFilter"),
				})
			},
		},
		{
			Name:        "tam_calculator",
			Description: "Project a Total Addressable Market by compounding a base market size.",
			Params: map[string]*Param{
				"baseMarketSize":   {Type: "number", Default: float64(10e9), Minimum: f(1)},
				"annualGrowthRate": {Type: "number", Default: 0.15, Minimum: f(-0.99), Maximum: f(5)},
				"projectionYears":  {Type: "integer", Default: float64(5), Minimum: f(1), Maximum: f(50)},
				"segmentationAdjustments": {Type: "object",
					Description: "Optional addressable-slice adjustment.",
					Properties: map[string]*Param{
						"factor":    {Type: "number", Default: 0.8, Minimum: f(0.01), Maximum: f(1)},
						"rationale": {Type: "string", Default: ""},
					}},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.CalculateTAM(service.TAMRequest{
					BaseMarketSize:   argFloat(args, "baseMarketSize"),
					AnnualGrowthRate: argFloat(args, "annualGrowthRate"),
					ProjectionYears:  argInt(args, "projectionYears"),
					Segmentation:     segmentationArg(args),
				})
			},
		},
		{
			Name:        "market_size_calculator",
			Description: "Estimate a market's size, routing by query shape across sources.",
			Params: map[string]*Param{
				"industryQuery": {Type: "string", Default: "technology",
					Description: "Industry name, NAICS code, or stock symbol."},
				"geographyCodes": {Type: "array", Items: &Param{Type: "string"}, Default: []any{"US"}},
				"indicatorCodes": {Type: "array", Items: &Param{Type: "string"}, Default: []any{}},
				"year":           {Type: "string", Default: ""},
				"methodology": {Type: "string", Default: "auto",
					Enum: []any{"auto", "top_down", "bottom_up"}},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.CalculateMarketSize(ctx, service.MarketSizeRequest{
					IndustryQuery:  argStr(args, "industryQuery"),
					GeographyCodes: argStrSlice(args, "geographyCodes"),
					IndicatorCodes: argStrSlice(args, "indicatorCodes"),
					Year:           argStr(args, "year"),
					Methodology:    argStr(args, "methodology"),
				})
			},
		},
		{
			Name:        "company_financials_retriever",
			Description: "Retrieve company financial statements from Alpha Vantage.",
			Adapters:    []config.Source{config.SourceAlphaVantage},
			Params: map[string]*Param{
				"companySymbol": {Type: "string", Default: "AAPL", Pattern: `^[A-Za-z.\-]{1,10}$`},
				"statementType": {Type: "string", Default: "income",
					Enum: []any{"overview", "income", "income_statement", "balance", "balance_sheet", "cash", "cash_flow"}},
				"period": {Type: "string", Default: "annual", Enum: []any{"annual", "quarterly"}},
				"limit":  {Type: "integer", Default: float64(5), Minimum: f(1), Maximum: f(20)},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.CompanyFinancials(ctx,
					argStr(args, "companySymbol"),
					argStr(args, "statementType"),
					argStr(args, "period"),
					argInt(args, "limit"))
			},
		},
	}
}

func advancedTools(svc *service.Service) []*Tool {
	return []*Tool{
		{
			Name:        "industry_analysis",
			Description: "Combine market sizing with related-industry search for one industry.",
			Params: map[string]*Param{
				"industry":          {Type: "string", Default: "technology"},
				"region":            {Type: "string", Default: "US"},
				"includeMarketSize": {Type: "boolean", Default: true},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.IndustryAnalysis(ctx,
					argStr(args, "industry"),
					argStr(args, "region"),
					argBool(args, "includeMarketSize"))
			},
		},
		{
			Name:        "industry_data",
			Description: "Raw multi-source industry records without relevance filtering.",
			Params: map[string]*Param{
				"industry": {Type: "string", Default: "technology"},
				"sources":  {Type: "array", Items: &Param{Type: "string"}, Default: []any{}},
				"limit":    {Type: "integer", Default: float64(10), Minimum: f(1), Maximum: f(50)},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.IndustryData(ctx,
					argStr(args, "industry"),
					argStrSlice(args, "sources"),
					argInt(args, "limit"))
			},
		},
		{
			Name:        "market_size",
			Description: "Estimate a market's current size for a region.",
			Params: map[string]*Param{
				"industryQuery": {Type: "string", Default: "technology"},
				"region":        {Type: "string", Default: "US"},
				"year":          {Type: "string", Default: ""},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.CalculateMarketSize(ctx, service.MarketSizeRequest{
					IndustryQuery:  argStr(args, "industryQuery"),
					GeographyCodes: []string{argStr(args, "region")},
					Year:           argStr(args, "year"),
				})
			},
		},
		{
			Name:        "tam_analysis",
			Description: "TAM projection with multi-scenario growth forecasts.",
			Params: map[string]*Param{
				"baseMarketSize":   {Type: "number", Default: float64(10e9), Minimum: f(1)},
				"annualGrowthRate": {Type: "number", Default: 0.15, Minimum: f(-0.99), Maximum: f(5)},
				"projectionYears":  {Type: "integer", Default: float64(5), Minimum: f(1), Maximum: f(50)},
				"scenarios": {Type: "object", Default: map[string]any{},
					Description: "Scenario name to growth rate; empty uses conservative/base/aggressive."},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				tam, err := svc.CalculateTAM(service.TAMRequest{
					BaseMarketSize:   argFloat(args, "baseMarketSize"),
					AnnualGrowthRate: argFloat(args, "annualGrowthRate"),
					ProjectionYears:  argInt(args, "projectionYears"),
				})
				if err != nil {
					return nil, err
				}
				forecast, err := svc.MarketForecast(
					argFloat(args, "baseMarketSize"),
					argInt(args, "projectionYears"),
					argFloatMap(args, "scenarios"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"tam": tam, "forecast": forecast}, nil
			},
		},
		{
			Name:        "sam_calculator",
			Description: "Derive a Serviceable Addressable Market by applying constraint factors to a TAM.",
			Params: map[string]*Param{
				"tam": {Type: "number", Default: float64(10e9), Minimum: f(1)},
				"constraints": {Type: "array",
					Items: &Param{Type: "object", Properties: map[string]*Param{
						"name":   {Type: "string", Required: true},
						"factor": {Type: "number", Required: true, Minimum: f(0.01), Maximum: f(1)},
					}},
					Default: []any{
						map[string]any{"name": "geographic reach", "factor": 0.4},
						map[string]any{"name": "competitive share", "factor": 0.5},
					}},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.CalculateSAM(argFloat(args, "tam"), constraintsArg(args))
			},
		},
		{
			Name:        "market_segments",
			Description: "Split a total market size across named segments.",
			Params: map[string]*Param{
				"totalMarketSize": {Type: "number", Default: float64(10e9), Minimum: f(1)},
				"segments": {Type: "array",
					Items: &Param{Type: "object", Properties: map[string]*Param{
						"name":  {Type: "string", Required: true},
						"share": {Type: "number", Required: true, Minimum: f(0.001)},
					}},
					Default:     []any{},
					Description: "Relative shares; empty uses the default company-size bands."},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.MarketSegments(argFloat(args, "totalMarketSize"), segmentsArg(args))
			},
		},
		{
			Name:        "market_forecasting",
			Description: "Project a market under named growth scenarios.",
			Params: map[string]*Param{
				"baseValue": {Type: "number", Default: float64(10e9), Minimum: f(1)},
				"years":     {Type: "integer", Default: float64(5), Minimum: f(1), Maximum: f(50)},
				"scenarios": {Type: "object", Default: map[string]any{}},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.MarketForecast(
					argFloat(args, "baseValue"),
					argInt(args, "years"),
					argFloatMap(args, "scenarios"))
			},
		},
		{
			Name:        "market_comparison",
			Description: "Size several markets and rank them.",
			Params: map[string]*Param{
				"markets": {Type: "array", Items: &Param{Type: "string"},
					Default: []any{"technology", "manufacturing"}},
				"region": {Type: "string", Default: "US"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.MarketComparison(ctx,
					argStrSlice(args, "markets"),
					argStr(args, "region"))
			},
		},
		{
			Name:        "data_validation",
			Description: "Cross-check a market estimate across independent sources.",
			Params: map[string]*Param{
				"query":  {Type: "string", Default: "technology"},
				"region": {Type: "string", Default: "US"},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.ValidateMarketData(ctx, argStr(args, "query"), argStr(args, "region"))
			},
		},
		{
			Name:        "market_opportunities",
			Description: "Screen search results into a scored opportunity list.",
			Params: map[string]*Param{
				"query":  {Type: "string", Default: "technology"},
				"region": {Type: "string", Default: "US"},
				"limit":  {Type: "integer", Default: float64(5), Minimum: f(1), Maximum: f(20)},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.MarketOpportunities(ctx,
					argStr(args, "query"),
					argStr(args, "region"),
					argInt(args, "limit"))
			},
		},
		{
			Name:        "generic_data_query",
			Description: "Route a raw (source, operation, params) query to the matching adapter.",
			Params: map[string]*Param{
				"source": {Type: "string", Default: "world_bank",
					Enum: []any{"alpha_vantage", "bls", "census", "fred", "nasdaq", "imf", "oecd", "world_bank"}},
				"operation": {Type: "string", Default: "indicator"},
				"params": {Type: "object",
					Default: map[string]any{"countryCode": "US", "indicator": "NY.GDP.MKTP.CD"}},
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				return svc.GenericQuery(ctx,
					argStr(args, "source"),
					argStr(args, "operation"),
					argMap(args, "params"))
			},
		},
	}
}

func segmentationArg(args map[string]any) *service.Segmentation {
	raw := argMap(args, "segmentationAdjustments")
	if len(raw) == 0 {
		return nil
	}
	factor, ok := raw["factor"].(float64)
	if !ok {
		return nil
	}
	seg := &service.Segmentation{Factor: factor}
	if r, ok := raw["rationale"].(string); ok {
		seg.Rationale = r
	}
	return seg
}

func constraintsArg(args map[string]any) []service.SAMConstraint {
	raw, _ := args["constraints"].([]any)
	out := make([]service.SAMConstraint, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		c := service.SAMConstraint{}
		c.Name, _ = m["name"].(string)
		c.Factor, _ = m["factor"].(float64)
		out = append(out, c)
	}
	return out
}

func segmentsArg(args map[string]any) []service.Segment {
	raw, _ := args["segments"].([]any)
	out := make([]service.Segment, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		s := service.Segment{}
		s.Name, _ = m["name"].(string)
		s.Share, _ = m["share"].(float64)
		out = append(out, s)
	}
	return out
}
