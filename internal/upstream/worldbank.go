package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const worldBankBaseURL = "https://api.worldbank.org/v2"

// worldBankIndicators maps industry aliases to curated indicator codes.
// Unknown industries fall back to nominal GDP.
var worldBankIndicators = map[string]string{
	"technology":    "IC.BUS.EASE.XQ",
	"manufacturing": "NV.IND.MANF.ZS",
	"agriculture":   "NV.AGR.TOTL.ZS",
	"services":      "NV.SRV.TOTL.ZS",
	"industry":      "NV.IND.TOTL.ZS",
	"exports":       "NE.EXP.GNFS.ZS",
	"energy":        "EG.USE.PCAP.KG.OE",
}

const worldBankDefaultIndicator = "NY.GDP.MKTP.CD"

// WorldBank serves World Bank development indicators. The provider
// wraps payloads in a two-element [metadata, data] array. Anonymous
// access.
type WorldBank struct {
	base
	baseURL string
}

// NewWorldBank builds the adapter.
func NewWorldBank(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *WorldBank {
	a := &WorldBank{
		base: base{
			name:   "world_bank",
			source: config.SourceWorldBank,
			cache:  c,
			ttl:    cfg.TTL(config.SourceWorldBank),
			httpc:  newHTTPClient(),
		},
		baseURL: worldBankBaseURL,
	}
	applyOptions(&a.base, &a.baseURL, opts)
	return a
}

func (a *WorldBank) Available() bool       { return true }
func (a *WorldBank) MissingKeys() []string { return nil }
func (a *WorldBank) Warnings() []string    { return nil }

// IndicatorData fetches indicator observations for a country. The
// provider's [metadata, data] envelope is unwrapped to the data
// element; envelopes shorter than two elements are returned raw.
func (a *WorldBank) IndicatorData(ctx context.Context, countryCode, indicator, date string, perPage int) (any, error) {
	params := map[string]any{"country": countryCode, "indicator": indicator}
	if date != "" {
		params["date"] = date
	}
	if perPage > 0 {
		params["per_page"] = perPage
	}
	key := CacheKey(a.name, "indicator", params)

	return a.fetch(key, func() (any, error) {
		q := url.Values{"format": {"json"}}
		if date != "" {
			q.Set("date", date)
		}
		if perPage > 0 {
			q.Set("per_page", strconv.Itoa(perPage))
		}

		endpoint := fmt.Sprintf("%s/country/%s/indicator/%s", a.baseURL,
			url.PathEscape(countryCode), url.PathEscape(indicator))
		body, err := getJSON(ctx, a.httpc, a.name, "indicator", endpoint, q)
		if err != nil {
			return nil, err
		}

		var envelope []any
		if err := decodeJSON(a.name, "indicator", body, &envelope); err != nil {
			return nil, err
		}
		if len(envelope) < 2 {
			// Malformed or error envelope: pass the raw payload through.
			return envelope, nil
		}
		if envelope[1] == nil {
			return nil, ErrNoData
		}
		return envelope[1], nil
	})
}

// MarketSize resolves an industry alias to an indicator, requests the
// five most recent values, and returns the first non-null as a
// normalized record.
func (a *WorldBank) MarketSize(ctx context.Context, industry, countryCode string) (any, error) {
	if countryCode == "" {
		countryCode = "US"
	}
	indicator := worldBankDefaultIndicator
	if code, ok := worldBankIndicators[strings.ToLower(strings.TrimSpace(industry))]; ok {
		indicator = code
	}

	key := CacheKey(a.name, "market_size", map[string]any{
		"industry": strings.ToLower(industry), "country": countryCode,
	})

	return a.fetch(key, func() (any, error) {
		v, err := a.IndicatorData(ctx, countryCode, indicator, "", 5)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, ErrNoData
		}

		rows := asSlice(v)
		for _, row := range rows {
			rec, ok := row.(map[string]any)
			if !ok || rec["value"] == nil {
				continue
			}
			return map[string]any{
				"value":     rec["value"],
				"date":      rec["date"],
				"indicator": indicator,
				"country":   countryCode,
				"source":    "World Bank",
			}, nil
		}
		return nil, ErrNoData
	})
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case json.RawMessage:
		var out []any
		if err := json.Unmarshal(t, &out); err == nil {
			return out
		}
	}
	return nil
}
