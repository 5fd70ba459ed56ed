package service

import (
	"context"
	"fmt"
	"strings"
)

// statementFunctions maps accepted statement types to Alpha Vantage
// function names.
var statementFunctions = map[string]string{
	"income":           "INCOME_STATEMENT",
	"income_statement": "INCOME_STATEMENT",
	"balance":          "BALANCE_SHEET",
	"balance_sheet":    "BALANCE_SHEET",
	"cash":             "CASH_FLOW",
	"cash_flow":        "CASH_FLOW",
}

// FinancialsResult is a company statement selection.
type FinancialsResult struct {
	Symbol        string `json:"symbol"`
	StatementType string `json:"statementType"`
	Period        string `json:"period"`
	Reports       []any  `json:"reports"`
}

// CompanyFinancials fetches a company statement and slices it to the
// requested period and report count. statementType "overview" returns
// the projected OVERVIEW record instead.
func (s *Service) CompanyFinancials(ctx context.Context, symbol, statementType, period string, limit int) (any, error) {
	if s.src.AlphaVantage == nil || !s.src.AlphaVantage.Available() {
		return nil, fmt.Errorf("financials: alpha_vantage is not available")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("financials: companySymbol is required")
	}
	statementType = strings.ToLower(statementType)
	if statementType == "overview" {
		return s.src.AlphaVantage.CompanyOverview(ctx, symbol)
	}

	function, ok := statementFunctions[statementType]
	if !ok {
		return nil, fmt.Errorf("financials: unknown statementType %q", statementType)
	}
	period = strings.ToLower(period)
	if period != "annual" && period != "quarterly" {
		return nil, fmt.Errorf("financials: period must be annual or quarterly")
	}
	if limit <= 0 {
		limit = 5
	}

	v, err := s.src.AlphaVantage.Financials(ctx, function, symbol)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("financials: unexpected %s payload shape", function)
	}

	field := "annualReports"
	if period == "quarterly" {
		field = "quarterlyReports"
	}
	reports, _ := raw[field].([]any)
	if len(reports) > limit {
		reports = reports[:limit]
	}
	if reports == nil {
		reports = []any{}
	}

	return &FinancialsResult{
		Symbol:        symbol,
		StatementType: statementType,
		Period:        period,
		Reports:       reports,
	}, nil
}
