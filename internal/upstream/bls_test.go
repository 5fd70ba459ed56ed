package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketscope/marketscope/internal/config"
)

func TestBLSSeriesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"CES0000000001"}, body["seriesid"])
		assert.Equal(t, "2020", body["startyear"])
		assert.NotContains(t, body, "registrationkey")

		w.Write([]byte(`{
			"status": "REQUEST_SUCCEEDED",
			"Results": {"series": [{"seriesID": "CES0000000001", "data": [
				{"year": "2020", "period": "M12", "value": "142.5"}
			]}]}
		}`))
	}))
	defer srv.Close()

	b := NewBLS(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	v, err := b.SeriesData(context.Background(), SeriesRequest{
		SeriesIDs: []string{"CES0000000001"},
		StartYear: "2020",
		EndYear:   "2021",
	})
	require.NoError(t, err)
	results, ok := v.(map[string]any)
	require.True(t, ok)
	series, ok := results["series"].([]any)
	require.True(t, ok)
	assert.Len(t, series, 1)
}

func TestBLSKeyedRequestCarriesRegistrationKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bls-key", body["registrationkey"])

		w.Write([]byte(`{"status": "REQUEST_SUCCEEDED", "Results": {"series": [{"seriesID": "X"}]}}`))
	}))
	defer srv.Close()

	cfg := testConfig(map[config.Source]string{config.SourceBLS: "bls-key"})
	b := NewBLS(cfg, newTestCache(), WithBaseURL(srv.URL))

	_, err := b.SeriesData(context.Background(), SeriesRequest{SeriesIDs: []string{"X"}})
	require.NoError(t, err)
}

func TestBLSFailedStatusIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "REQUEST_NOT_PROCESSED", "message": ["invalid series"]}`))
	}))
	defer srv.Close()

	b := NewBLS(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	_, err := b.SeriesData(context.Background(), SeriesRequest{SeriesIDs: []string{"BAD"}})
	require.Error(t, err)
	assert.Equal(t, ClassTransport, Classify(err))
	assert.Contains(t, err.Error(), "invalid series")
}

func TestBLSOverCapStillIssuesRequest(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"status": "REQUEST_SUCCEEDED", "Results": {"series": [{"seriesID": "S0"}]}}`))
	}))
	defer srv.Close()

	b := NewBLS(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	ids := make([]string, 30) // over the 25-series anonymous cap
	for i := range ids {
		ids[i] = fmt.Sprintf("S%d", i)
	}
	_, err := b.SeriesData(context.Background(), SeriesRequest{SeriesIDs: ids})
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestBLSAlwaysAvailable(t *testing.T) {
	b := NewBLS(testConfig(nil), newTestCache())
	assert.True(t, b.Available())
	assert.Equal(t, []string{"BLS_API_KEY"}, b.MissingKeys())
	require.Len(t, b.Warnings(), 1)
	assert.Contains(t, b.Warnings()[0], "anonymous")
}

func TestBLSRequiresSeriesIDs(t *testing.T) {
	b := NewBLS(testConfig(nil), newTestCache())
	_, err := b.SeriesData(context.Background(), SeriesRequest{})
	require.Error(t, err)
}
