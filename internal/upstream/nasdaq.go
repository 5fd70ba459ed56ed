package upstream

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/marketscope/marketscope/internal/cache"
	"github.com/marketscope/marketscope/internal/config"
)

const nasdaqBaseURL = "https://data.nasdaq.com/api/v3/datasets"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Nasdaq serves Nasdaq Data Link (formerly Quandl) datasets. Requires
// NASDAQ_DATA_LINK_API_KEY.
type Nasdaq struct {
	base
	baseURL string
}

// DatasetRequest selects a window of a Nasdaq dataset.
type NasdaqRequest struct {
	Database    string
	Dataset     string
	Limit       int
	Order       string
	StartDate   string
	EndDate     string
	Collapse    string
	Transform   string
	ColumnIndex int
}

// NewNasdaq builds the adapter.
func NewNasdaq(cfg *config.Config, c *cache.Cache, opts ...AdapterOption) *Nasdaq {
	a := &Nasdaq{
		base: base{
			name:   "nasdaq",
			source: config.SourceNasdaq,
			cache:  c,
			ttl:    cfg.TTL(config.SourceNasdaq),
			httpc:  newHTTPClient(),
			apiKey: cfg.Key(config.SourceNasdaq),
		},
		baseURL: nasdaqBaseURL,
	}
	applyOptions(&a.base, &a.baseURL, opts)
	return a
}

func (a *Nasdaq) Available() bool { return a.apiKey != "" }

func (a *Nasdaq) MissingKeys() []string {
	if a.apiKey == "" {
		return []string{"NASDAQ_DATA_LINK_API_KEY"}
	}
	return nil
}

func (a *Nasdaq) Warnings() []string { return nil }

// DatasetTimeSeries fetches a dataset window and returns the provider's
// dataset_data object verbatim ({column_names, data, ...}).
func (a *Nasdaq) DatasetTimeSeries(ctx context.Context, req NasdaqRequest) (any, error) {
	params := map[string]any{"database": req.Database, "dataset": req.Dataset}
	if req.Limit > 0 {
		params["limit"] = req.Limit
	}
	if req.Order != "" {
		params["order"] = req.Order
	}
	if req.StartDate != "" {
		params["start_date"] = req.StartDate
	}
	if req.EndDate != "" {
		params["end_date"] = req.EndDate
	}
	if req.Collapse != "" {
		params["collapse"] = req.Collapse
	}
	if req.Transform != "" {
		params["transform"] = req.Transform
	}
	if req.ColumnIndex > 0 {
		params["column_index"] = req.ColumnIndex
	}
	key := CacheKey(a.name, "dataset", params)

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "dataset", req)
		if err != nil {
			return nil, err
		}

		dd := gjson.GetBytes(body, "dataset_data")
		if !dd.Exists() || len(dd.Get("data").Array()) == 0 {
			return nil, ErrNoData
		}
		return dd.Value(), nil
	})
}

// LatestDatasetValue returns the newest row's value for the named
// column as a normalized record, or nil when the dataset is empty.
func (a *Nasdaq) LatestDatasetValue(ctx context.Context, database, dataset, column string) (any, error) {
	key := CacheKey(a.name, "latest_value", map[string]any{
		"database": database, "dataset": dataset, "column": column,
	})

	return a.fetch(key, func() (any, error) {
		body, err := a.query(ctx, "latest_value", NasdaqRequest{
			Database: database, Dataset: dataset, Limit: 1, Order: "desc",
		})
		if err != nil {
			return nil, err
		}

		dd := gjson.GetBytes(body, "dataset_data")
		rows := dd.Get("data").Array()
		if !dd.Exists() || len(rows) == 0 {
			return nil, ErrNoData
		}

		var columns []string
		for _, c := range dd.Get("column_names").Array() {
			columns = append(columns, c.String())
		}
		row := rows[0].Array()

		valueIdx := columnIndex(columns, column)
		if valueIdx < 0 || valueIdx >= len(row) {
			return nil, fmt.Errorf("nasdaq: column %q not present in %v", column, columns)
		}

		// The date is usually column 0, but not always: prefer the
		// first cell that actually looks like a date.
		dateIdx := 0
		for i, cell := range row {
			if datePattern.MatchString(cell.String()) {
				dateIdx = i
				break
			}
		}

		return map[string]any{
			"value":    row[valueIdx].Value(),
			"date":     row[dateIdx].String(),
			"column":   columns[valueIdx],
			"database": database,
			"dataset":  dataset,
			"source":   "Nasdaq Data Link",
		}, nil
	})
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

func (a *Nasdaq) query(ctx context.Context, op string, req NasdaqRequest) ([]byte, error) {
	if err := a.requireKey("NASDAQ_DATA_LINK_API_KEY"); err != nil {
		return nil, err
	}

	q := url.Values{"api_key": {a.apiKey}}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Order != "" {
		q.Set("order", req.Order)
	}
	if req.StartDate != "" {
		q.Set("start_date", req.StartDate)
	}
	if req.EndDate != "" {
		q.Set("end_date", req.EndDate)
	}
	if req.Collapse != "" {
		q.Set("collapse", req.Collapse)
	}
	if req.Transform != "" {
		q.Set("transform", req.Transform)
	}
	if req.ColumnIndex > 0 {
		q.Set("column_index", strconv.Itoa(req.ColumnIndex))
	}

	endpoint := fmt.Sprintf("%s/%s/%s/data.json", a.baseURL,
		url.PathEscape(req.Database), url.PathEscape(req.Dataset))
	return getJSON(ctx, a.httpc, a.name, op, endpoint, q)
}
