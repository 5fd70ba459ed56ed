package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seriesCentricSDMX = `{
	"structure": {
		"dimensions": {
			"series": [
				{"id": "REF_AREA", "name": "Reference Area", "values": [
					{"id": "US", "name": "United States"},
					{"id": "DE", "name": "Germany"}
				]},
				{"id": "INDICATOR", "name": "Indicator", "values": [
					{"id": "NGDP", "name": "Gross Domestic Product"}
				]}
			],
			"observation": [
				{"id": "TIME_PERIOD", "name": "Time period", "values": [
					{"id": "2022", "name": "2022"},
					{"id": "2023", "name": "2023"}
				]}
			]
		},
		"attributes": {
			"series": [
				{"id": "UNIT", "name": "Unit", "values": [{"id": "USD", "name": "US dollars"}]}
			],
			"observation": []
		}
	},
	"dataSets": [{
		"series": {
			"0:0": {
				"attributes": [0],
				"observations": {"0": [25000.5], "1": [26100.25]}
			}
		}
	}]
}`

func TestParseSDMXSeriesCentric(t *testing.T) {
	records, err := parseSDMX([]byte(seriesCentricSDMX))
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Sorted by TIME_PERIOD.
	first := records[0]
	assert.Equal(t, "2022", first["TIME_PERIOD"])
	assert.Equal(t, 25000.5, first["value"])
	assert.Equal(t, "United States", first["REF_AREA"])
	assert.Equal(t, "US", first["REF_AREA_ID"])
	assert.Equal(t, "Gross Domestic Product", first["INDICATOR"])
	assert.Equal(t, "US dollars", first["UNIT"])

	assert.Equal(t, "2023", records[1]["TIME_PERIOD"])
	assert.Equal(t, 26100.25, records[1]["value"])
}

const observationCentricSDMX = `{
	"structure": {
		"dimensions": {
			"observation": [
				{"id": "LOCATION", "name": "Country", "values": [
					{"id": "USA", "name": "United States"}
				]},
				{"id": "TIME_PERIOD", "name": "Time", "values": [
					{"id": "2021", "name": "2021"},
					{"id": "2022", "name": "2022"}
				]}
			]
		},
		"attributes": {"observation": []}
	},
	"dataSets": [{
		"observations": {
			"0:0": [3.1],
			"0:1": [3.4]
		}
	}]
}`

func TestParseSDMXObservationCentric(t *testing.T) {
	records, err := parseSDMX([]byte(observationCentricSDMX))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2021", records[0]["TIME_PERIOD"])
	assert.Equal(t, 3.1, records[0]["value"])
	assert.Equal(t, "United States", records[0]["LOCATION"])
	assert.Equal(t, "USA", records[0]["LOCATION_ID"])
	assert.Equal(t, "2022", records[1]["TIME_PERIOD"])
}

func TestParseSDMXMissingStructureIsNil(t *testing.T) {
	records, err := parseSDMX([]byte(`{
		"structure": {"dimensions": {}},
		"dataSets": [{"series": {"0:0": {"observations": {"0": [1]}}}}]
	}`))
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestParseSDMXEmptyPayloadIsNil(t *testing.T) {
	records, err := parseSDMX([]byte(`{"dataSets": []}`))
	require.NoError(t, err)
	assert.Nil(t, records)

	records, err = parseSDMX([]byte(`{"dataSets": [{}]}`))
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestParseSDMXMalformedIsError(t *testing.T) {
	_, err := parseSDMX([]byte(`<html>not json</html>`))
	require.Error(t, err)
}

func TestParseSDMXDeterministicOrder(t *testing.T) {
	a, err := parseSDMX([]byte(seriesCentricSDMX))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		b, err := parseSDMX([]byte(seriesCentricSDMX))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}
