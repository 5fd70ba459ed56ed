package service

import (
	"context"
	"fmt"
	"strings"
)

// defaultSearchers wires the sources that have a usable lookup
// capability into industry searchers. FRED, BLS, Nasdaq, IMF, and OECD
// expose series catalogs too large to scan per query, so they are
// reached through the direct tools instead.
func defaultSearchers(src Sources) []Searcher {
	var out []Searcher
	if src.AlphaVantage != nil {
		out = append(out, &alphaVantageSearcher{av: src.AlphaVantage})
	}
	if src.Census != nil {
		out = append(out, &censusSearcher{census: src.Census})
	}
	if src.WorldBank != nil {
		out = append(out, &worldBankSearcher{wb: src.WorldBank})
	}
	return out
}

// alphaVantageSearcher maps SYMBOL_SEARCH matches to industries keyed by
// ticker.
type alphaVantageSearcher struct {
	av CompanySource
}

func (s *alphaVantageSearcher) Source() string  { return "alpha_vantage" }
func (s *alphaVantageSearcher) Available() bool { return s.av.Available() }

func (s *alphaVantageSearcher) Search(ctx context.Context, query, geography string) ([]Industry, error) {
	v, err := s.av.SearchSymbols(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, _ := v.([]any)

	var out []Industry
	for _, m := range matches {
		rec, ok := m.(map[string]any)
		if !ok {
			continue
		}
		symbol := str(rec["1. symbol"])
		if symbol == "" {
			continue
		}
		region := str(rec["4. region"])
		if geography != "" && !strings.EqualFold(region, geography) {
			continue
		}
		out = append(out, Industry{
			IndustryID:    symbol,
			Name:          str(rec["2. name"]),
			Description:   strings.TrimSpace(str(rec["3. type"]) + " listed in " + region),
			Geography:     region,
			Currency:      str(rec["8. currency"]),
			SourceDetails: []string{"Alpha Vantage SYMBOL_SEARCH"},
		})
	}
	return out, nil
}

// naicsCatalog is the slice of the NAICS hierarchy the census searcher
// matches against. Codes are 2017-revision four-digit industry groups.
var naicsCatalog = []struct {
	code, title string
}{
	{"2211", "Electric Power Generation, Transmission and Distribution"},
	{"2362", "Nonresidential Building Construction"},
	{"3118", "Bakeries and Tortilla Manufacturing"},
	{"3254", "Pharmaceutical and Medicine Manufacturing"},
	{"3341", "Computer and Peripheral Equipment Manufacturing"},
	{"3361", "Motor Vehicle Manufacturing"},
	{"4451", "Food and Beverage Retailers"},
	{"4841", "General Freight Trucking"},
	{"5112", "Software Publishers"},
	{"5179", "Telecommunications Carriers"},
	{"5221", "Depository Credit Intermediation"},
	{"5415", "Computer Systems Design and Related Services"},
	{"5416", "Management and Technical Consulting Services"},
	{"6211", "Offices of Physicians"},
	{"7225", "Restaurants and Other Eating Places"},
}

// censusSearcher matches the query against the NAICS catalog and
// enriches hits with County Business Patterns employment counts.
type censusSearcher struct {
	census CensusSource
}

func (s *censusSearcher) Source() string  { return "census" }
func (s *censusSearcher) Available() bool { return s.census.Available() }

func (s *censusSearcher) Search(ctx context.Context, query, geography string) ([]Industry, error) {
	qTokens := tokenize(query)

	var out []Industry
	for _, entry := range naicsCatalog {
		if !anyTokenIn(qTokens, entry.title) {
			continue
		}
		ind := Industry{
			IndustryID:    "naics-" + entry.code,
			Name:          entry.title,
			Codes:         map[string]string{"NAICS": entry.code},
			Geography:     "US",
			SourceDetails: []string{"Census County Business Patterns"},
		}
		// Enrichment is best-effort: a missing CBP row or a failed
		// lookup leaves the catalog entry without an employment figure.
		if len(out) < 3 {
			if v, err := s.census.MarketSize(ctx, entry.code, "", "EMP", "2021"); err == nil {
				if rows, ok := v.([]map[string]any); ok && len(rows) > 0 {
					ind.MarketSize = rows[0]["EMP"]
					ind.Year = "2021"
				}
			}
		}
		out = append(out, ind)
	}
	return out, nil
}

// worldBankIndustryCatalog names the sector aggregates the World Bank
// searcher can size.
var worldBankIndustryCatalog = []struct {
	industry, description string
}{
	{"technology", "Technology and business environment indicators"},
	{"manufacturing", "Manufacturing value added share of GDP"},
	{"agriculture", "Agriculture, forestry, and fishing value added"},
	{"services", "Services value added share of GDP"},
	{"industry", "Industry value added share of GDP"},
	{"energy", "Energy use and production indicators"},
}

// worldBankSearcher matches sector aggregates and sizes them with
// development indicators.
type worldBankSearcher struct {
	wb IndicatorSource
}

func (s *worldBankSearcher) Source() string  { return "world_bank" }
func (s *worldBankSearcher) Available() bool { return s.wb.Available() }

func (s *worldBankSearcher) Search(ctx context.Context, query, geography string) ([]Industry, error) {
	country := geography
	if country == "" {
		country = "US"
	}
	qTokens := tokenize(query)

	var out []Industry
	for _, entry := range worldBankIndustryCatalog {
		if !anyTokenIn(qTokens, entry.industry+" "+entry.description) {
			continue
		}
		ind := Industry{
			IndustryID:    "wb-" + entry.industry,
			Name:          entry.industry,
			Description:   entry.description,
			Geography:     country,
			SourceDetails: []string{"World Bank development indicators"},
		}
		v, err := s.wb.MarketSize(ctx, entry.industry, country)
		if err != nil {
			return nil, err
		}
		if rec, ok := v.(map[string]any); ok {
			ind.MarketSize = rec["value"]
			ind.Year = str(rec["date"])
			ind.Currency = "USD"
		}
		out = append(out, ind)
	}
	return out, nil
}

func anyTokenIn(qTokens []string, text string) bool {
	have := make(map[string]bool)
	for _, t := range tokenize(text) {
		have[t] = true
	}
	for _, t := range qTokens {
		if have[t] {
			return true
		}
	}
	return false
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
