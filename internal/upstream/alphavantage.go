package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage serves company fundamentals, symbol search, and equity
// time series. Requires ALPHA_VANTAGE_API_KEY. The provider signals
// errors in-band: a "Note"/"Information" field for rate limits, an
// "Error Message" field for bad requests.
type AlphaVantage struct {
	base
	baseURL string
}

// NewAlphaVantage builds the adapter.
func NewAlphaVantage(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *AlphaVantage {
	a := &AlphaVantage{
		base: base{
			name:   "alpha_vantage",
			source: config.SourceAlphaVantage,
			cache:  c,
			ttl:    cfg.TTL(config.SourceAlphaVantage),
			httpc:  newHTTPClient(),
			apiKey: cfg.Key(config.SourceAlphaVantage),

			// An unreachable Alpha Vantage backs off for the full
			// success TTL. Deliberate asymmetry, covered by tests.
			timeoutUsesSuccessTTL: true,
		},
		baseURL: alphaVantageBaseURL,
	}
	applyOptions(&a.base, &a.baseURL, opts)
	return a
}

func (a *AlphaVantage) Available() bool        { return a.apiKey != "" }
func (a *AlphaVantage) Warnings() []string     { return nil }
func (a *AlphaVantage) MissingKeys() []string {
	if a.apiKey == "" {
		return []string{"ALPHA_VANTAGE_API_KEY"}
	}
	return nil
}

// CompanyOverview returns the projected OVERVIEW record for a symbol,
// or nil when the provider has no data (including the literal "None"
// market cap it reports for unknown tickers).
func (a *AlphaVantage) CompanyOverview(ctx context.Context, symbol string) (any, error) {
	symbol = strings.ToUpper(symbol)
	key := CacheKey(a.name, "overview", map[string]any{"symbol": symbol})

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "overview", url.Values{
			"function": {"OVERVIEW"},
			"symbol":   {symbol},
		})
		if err != nil {
			return nil, err
		}

		mcap := gjson.GetBytes(body, "MarketCapitalization").String()
		if mcap == "None" || mcap == "" {
			return nil, ErrNoData
		}

		return map[string]any{
			"symbol":               gjson.GetBytes(body, "Symbol").String(),
			"marketCapitalization": parseNumber(mcap),
			"name":                 gjson.GetBytes(body, "Name").String(),
			"sector":               gjson.GetBytes(body, "Sector").String(),
			"industry":             gjson.GetBytes(body, "Industry").String(),
			"description":          gjson.GetBytes(body, "Description").String(),
			"currency":             "USD",
			"country":              gjson.GetBytes(body, "Country").String(),
			"exchange":             gjson.GetBytes(body, "Exchange").String(),
			"eps":                  parseNumber(gjson.GetBytes(body, "EPS").String()),
			"peRatio":              parseNumber(gjson.GetBytes(body, "PERatio").String()),
		}, nil
	})
}

// SearchSymbols runs SYMBOL_SEARCH and returns the provider's match
// list verbatim.
func (a *AlphaVantage) SearchSymbols(ctx context.Context, keywords string) (any, error) {
	key := CacheKey(a.name, "symbol_search", map[string]any{"keywords": keywords})

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "symbol_search", url.Values{
			"function": {"SYMBOL_SEARCH"},
			"keywords": {keywords},
		})
		if err != nil {
			return nil, err
		}

		matches := gjson.GetBytes(body, "bestMatches")
		if !matches.Exists() || len(matches.Array()) == 0 {
			return nil, ErrNoData
		}
		return matches.Value(), nil
	})
}

// TimeSeries fetches a time-series function (TIME_SERIES_DAILY,
// TIME_SERIES_WEEKLY, ...) and returns metadata plus the series
// verbatim.
func (a *AlphaVantage) TimeSeries(ctx context.Context, function, symbol string) (any, error) {
	function = strings.ToUpper(function)
	symbol = strings.ToUpper(symbol)
	key := CacheKey(a.name, "time_series", map[string]any{
		"function": function, "symbol": symbol,
	})

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "time_series", url.Values{
			"function": {function},
			"symbol":   {symbol},
		})
		if err != nil {
			return nil, err
		}

		var seriesKey, metaKey string
		gjson.ParseBytes(body).ForEach(func(k, _ gjson.Result) bool {
			name := k.String()
			if strings.Contains(name, "Time Series") ||
				strings.Contains(name, "Weekly") ||
				strings.Contains(name, "Monthly") {
				seriesKey = name
			}
			if strings.Contains(name, "Meta Data") {
				metaKey = name
			}
			return true
		})
		if seriesKey == "" {
			return nil, ErrNoData
		}

		return map[string]any{
			"metaData":   gjson.GetBytes(body, escapeGJSONPath(metaKey)).Value(),
			"timeSeries": gjson.GetBytes(body, escapeGJSONPath(seriesKey)).Value(),
		}, nil
	})
}

// Financials fetches INCOME_STATEMENT, BALANCE_SHEET, or CASH_FLOW for
// a symbol and returns the report structure verbatim.
func (a *AlphaVantage) Financials(ctx context.Context, function, symbol string) (any, error) {
	function = strings.ToUpper(function)
	symbol = strings.ToUpper(symbol)
	key := CacheKey(a.name, "financials", map[string]any{
		"function": function, "symbol": symbol,
	})

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "financials", url.Values{
			"function": {function},
			"symbol":   {symbol},
		})
		if err != nil {
			return nil, err
		}

		parsed := gjson.ParseBytes(body)
		if !parsed.Get("annualReports").Exists() && !parsed.Get("quarterlyReports").Exists() {
			return nil, ErrNoData
		}
		return parsed.Value(), nil
	})
}

// query issues the request and applies the provider's in-band error
// signals before handing the body to the caller.
func (a *AlphaVantage) query(ctx context.Context, op string, q url.Values) ([]byte, error) {
	if err := a.requireKey("ALPHA_VANTAGE_API_KEY"); err != nil {
		return nil, err
	}
	q.Set("apikey", a.apiKey)

	body, err := getJSON(ctx, a.httpc, a.name, op, a.baseURL, q)
	if err != nil {
		return nil, err
	}

	parsed := gjson.ParseBytes(body)

	if note := parsed.Get("Note").String(); note != "" && isRateLimitNote(note) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, note)
	}
	if info := parsed.Get("Information").String(); info != "" && isRateLimitNote(info) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, info)
	}
	if msg := parsed.Get("Error Message").String(); msg != "" {
		return nil, &TransportError{Source: a.name, Op: op, Err: fmt.Errorf("provider error: %s", msg)}
	}
	if len(parsed.Map()) == 0 {
		return nil, ErrNoData
	}
	return body, nil
}

func isRateLimitNote(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "rate limit") ||
		strings.Contains(s, "call frequency") ||
		strings.Contains(s, "calls per")
}

// parseNumber converts the provider's numeric strings; "None", "-", and
// junk become nil.
func parseNumber(s string) any {
	if s == "" || s == "None" || s == "-" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return f
}

// escapeGJSONPath escapes dots in literal JSON keys such as
// "Time Series (Daily)" so gjson treats them as one path element.
func escapeGJSONPath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}
