package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOECDDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/QNA/USA.B1_GE.CQRSA.Q/all", r.URL.Path)
		assert.Equal(t, "jsondata", r.URL.Query().Get("format"))
		assert.Equal(t, "2021", r.URL.Query().Get("startPeriod"))
		w.Write([]byte(observationCentricSDMX))
	}))
	defer srv.Close()

	a := NewOECD(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.Dataset(context.Background(), DatasetRequest{
		DatasetID:        "QNA",
		FilterExpression: "USA.B1_GE.CQRSA.Q",
		StartPeriod:      "2021",
	})
	require.NoError(t, err)
	records, ok := v.([]map[string]any)
	require.True(t, ok)
	require.Len(t, records, 2)
}

func TestOECDEmptyFilterDefaultsToAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/QNA/all/all", r.URL.Path)
		w.Write([]byte(observationCentricSDMX))
	}))
	defer srv.Close()

	a := NewOECD(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	_, err := a.Dataset(context.Background(), DatasetRequest{DatasetID: "QNA"})
	require.NoError(t, err)
}

func TestOECDLatestObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(observationCentricSDMX))
	}))
	defer srv.Close()

	a := NewOECD(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.LatestObservation(context.Background(), "QNA", "USA.B1_GE.CQRSA.Q")
	require.NoError(t, err)
	rec, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "2022", rec["TIME_PERIOD"])
	assert.Equal(t, 3.4, rec["value"])
}

func TestOECDNoObservationsIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"structure": {"dimensions": {"observation": []}}, "dataSets": [{}]}`))
	}))
	defer srv.Close()

	a := NewOECD(testConfig(nil), newTestCache(), WithBaseURL(srv.URL))

	v, err := a.Dataset(context.Background(), DatasetRequest{DatasetID: "EMPTY"})
	require.NoError(t, err)
	assert.Nil(t, v)
}
