package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const censusBaseURL = "https://api.census.gov/data"

// Valid variables for County Business Patterns market sizing.
var cbpVariables = map[string]bool{"EMP": true, "PAYANN": true, "ESTAB": true}

// Census serves Census Bureau tabular datasets. Responses arrive as a
// header row plus data rows; the adapter reshapes them into records,
// coercing purely-digit strings to integers. Requires CENSUS_API_KEY.
type Census struct {
	base
	baseURL string
}

// NewCensus builds the adapter.
func NewCensus(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *Census {
	a := &Census{
		base: base{
			name:   "census",
			source: config.SourceCensus,
			cache:  c,
			ttl:    cfg.TTL(config.SourceCensus),
			httpc:  newHTTPClient(),
			apiKey: cfg.Key(config.SourceCensus),
		},
		baseURL: censusBaseURL,
	}
	applyOptions(&a.base, &a.baseURL, opts)
	return a
}

func (a *Census) Available() bool { return a.apiKey != "" }

func (a *Census) MissingKeys() []string {
	if a.apiKey == "" {
		return []string{"CENSUS_API_KEY"}
	}
	return nil
}

func (a *Census) Warnings() []string { return nil }

// IndustryData queries an arbitrary Census dataset. variables and
// forGeography are required; extra filters become query predicates.
func (a *Census) IndustryData(ctx context.Context, year, datasetPath string, variables []string, forGeography string, filters map[string]string) (any, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("census: variables are required")
	}
	if forGeography == "" {
		return nil, fmt.Errorf("census: forGeography is required")
	}

	params := map[string]any{
		"year": year, "dataset": datasetPath,
		"get": strings.Join(variables, ","), "for": forGeography,
	}
	for k, v := range filters {
		params[k] = v
	}
	key := CacheKey(a.name, "industry_data", params)

	return a.fetch(key, func() (any, error) {
		return a.query(ctx, "industry_data", year, datasetPath, variables, forGeography, filters)
	})
}

// MarketSize queries County Business Patterns for a NAICS code. variable
// selects employment, annual payroll, or establishment count.
func (a *Census) MarketSize(ctx context.Context, naicsCode, geography, variable, year string) (any, error) {
	variable = strings.ToUpper(variable)
	if !cbpVariables[variable] {
		return nil, fmt.Errorf("census: variable must be one of EMP, PAYANN, ESTAB; got %q", variable)
	}
	if geography == "" {
		geography = "us:*"
	}

	key := CacheKey(a.name, "market_size", map[string]any{
		"naics": naicsCode, "for": geography, "variable": variable, "year": year,
	})

	return a.fetch(key, func() (any, error) {
		return a.query(ctx, "market_size", year, "cbp",
			[]string{variable, "NAICS2017_LABEL"}, geography,
			map[string]string{"NAICS2017": naicsCode})
	})
}

func (a *Census) query(ctx context.Context, op, year, datasetPath string, variables []string, forGeography string, filters map[string]string) (any, error) {
	if err := a.requireKey("CENSUS_API_KEY"); err != nil {
		return nil, err
	}

	q := url.Values{
		"get": {strings.Join(variables, ",")},
		"for": {forGeography},
		"key": {a.apiKey},
	}
	for k, v := range filters {
		q.Set(k, v)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", a.baseURL, year, strings.Trim(datasetPath, "/"))
	body, err := getJSON(ctx, a.httpc, a.name, op, endpoint, q)
	if err != nil {
		return nil, err
	}

	var table [][]any
	if err := decodeJSON(a.name, op, body, &table); err != nil {
		return nil, err
	}
	if len(table) < 2 {
		return nil, ErrNoData
	}

	return reshapeCensusTable(table), nil
}

// reshapeCensusTable turns [header, row...] into records, coercing
// purely-digit strings to integers.
func reshapeCensusTable(table [][]any) []map[string]any {
	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = fmt.Sprint(h)
	}

	records := make([]map[string]any, 0, len(table)-1)
	for _, row := range table[1:] {
		rec := make(map[string]any, len(header))
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			rec[header[i]] = coerceDigits(cell)
		}
		records = append(records, rec)
	}
	return records
}

func coerceDigits(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return v
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return v
	}
	return n
}
