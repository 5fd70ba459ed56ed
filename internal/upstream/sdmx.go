package upstream

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// SDMX-JSON carries data and structure separately: series and
// observations are keyed by ":"-delimited dimension-index tuples that
// must be resolved against the structure block. IMF publishes the
// series-centric Compact shape; OECD answers with either series-centric
// or observation-centric layouts depending on dimensionAtObservation.

type sdmxValue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sdmxDimension struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Values []sdmxValue `json:"values"`
}

type sdmxStructure struct {
	Dimensions struct {
		Series      []sdmxDimension `json:"series"`
		Observation []sdmxDimension `json:"observation"`
	} `json:"dimensions"`
	Attributes struct {
		Series      []sdmxDimension `json:"series"`
		Observation []sdmxDimension `json:"observation"`
	} `json:"attributes"`
}

type sdmxSeries struct {
	Attributes   []any            `json:"attributes"`
	Observations map[string][]any `json:"observations"`
}

type sdmxDataSet struct {
	Series       map[string]sdmxSeries `json:"series"`
	Observations map[string][]any      `json:"observations"`
}

type sdmxMessage struct {
	Structure sdmxStructure `json:"structure"`
	DataSets  []sdmxDataSet `json:"dataSets"`
}

// parseSDMX decodes an SDMX-JSON payload and flattens every observation
// into a record of labeled dimensions:
//
//	{<dim_id>: name, <dim_id>_ID: id, TIME_PERIOD: period, value: n,
//	 <attr_id>: name, <attr_id>_ID: id}
//
// Returns nil (not an error) when the payload carries no series
// structure or no observations.
func parseSDMX(data []byte) ([]map[string]any, error) {
	var msg sdmxMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if len(msg.DataSets) == 0 {
		return nil, nil
	}

	ds := msg.DataSets[0]
	var records []map[string]any

	switch {
	case len(ds.Series) > 0:
		if msg.Structure.Dimensions.Series == nil {
			return nil, nil
		}
		records = flattenSeriesCentric(&msg.Structure, ds.Series)
	case len(ds.Observations) > 0:
		records = flattenObservationCentric(&msg.Structure, ds.Observations)
	default:
		return nil, nil
	}

	if len(records) == 0 {
		return nil, nil
	}
	sortSDMXRecords(records)
	return records, nil
}

func flattenSeriesCentric(st *sdmxStructure, series map[string]sdmxSeries) []map[string]any {
	var records []map[string]any

	for seriesKey, s := range series {
		dims := resolveKey(seriesKey, st.Dimensions.Series)

		// Series-level attributes apply to every observation beneath.
		attrs := make(map[string]any)
		for i, raw := range s.Attributes {
			idx, ok := attrIndex(raw)
			if !ok || i >= len(st.Attributes.Series) {
				continue
			}
			applyAttr(attrs, st.Attributes.Series[i], idx)
		}

		for obsKey, obs := range s.Observations {
			rec := make(map[string]any, len(dims)+len(attrs)+4)
			for k, v := range dims {
				rec[k] = v
			}
			for k, v := range attrs {
				rec[k] = v
			}

			rec["TIME_PERIOD"] = resolveObsPeriod(obsKey, st.Dimensions.Observation)
			if len(obs) > 0 {
				rec["value"] = toNumber(obs[0])
			} else {
				rec["value"] = nil
			}

			// Remaining positions are observation-attribute indexes.
			for i, raw := range obs[min(1, len(obs)):] {
				idx, ok := attrIndex(raw)
				if !ok || i >= len(st.Attributes.Observation) {
					continue
				}
				applyAttr(rec, st.Attributes.Observation[i], idx)
			}

			records = append(records, rec)
		}
	}
	return records
}

func flattenObservationCentric(st *sdmxStructure, observations map[string][]any) []map[string]any {
	var records []map[string]any

	for obsKey, obs := range observations {
		rec := make(map[string]any, len(st.Dimensions.Observation)+2)

		for i, part := range strings.Split(obsKey, ":") {
			if i >= len(st.Dimensions.Observation) {
				break
			}
			dim := st.Dimensions.Observation[i]
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(dim.Values) {
				continue
			}
			v := dim.Values[idx]
			if dim.ID == "TIME_PERIOD" {
				rec["TIME_PERIOD"] = v.ID
				continue
			}
			rec[dim.ID] = v.Name
			rec[dim.ID+"_ID"] = v.ID
		}

		if len(obs) > 0 {
			rec["value"] = toNumber(obs[0])
		} else {
			rec["value"] = nil
		}
		for i, raw := range obs[min(1, len(obs)):] {
			idx, ok := attrIndex(raw)
			if !ok || i >= len(st.Attributes.Observation) {
				continue
			}
			applyAttr(rec, st.Attributes.Observation[i], idx)
		}

		records = append(records, rec)
	}
	return records
}

// resolveKey labels a ":"-delimited index tuple against the series
// dimensions.
func resolveKey(key string, dims []sdmxDimension) map[string]any {
	out := make(map[string]any, len(dims)*2)
	for i, part := range strings.Split(key, ":") {
		if i >= len(dims) {
			break
		}
		dim := dims[i]
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(dim.Values) {
			continue
		}
		out[dim.ID] = dim.Values[idx].Name
		out[dim.ID+"_ID"] = dim.Values[idx].ID
	}
	return out
}

// resolveObsPeriod maps an observation key to its TIME_PERIOD id. The
// first observation dimension is the time axis in both IMF and OECD
// payloads.
func resolveObsPeriod(obsKey string, dims []sdmxDimension) string {
	idxStr := strings.Split(obsKey, ":")[0]
	idx, err := strconv.Atoi(idxStr)
	if err != nil || len(dims) == 0 {
		return obsKey
	}
	if idx < 0 || idx >= len(dims[0].Values) {
		return obsKey
	}
	return dims[0].Values[idx].ID
}

func applyAttr(rec map[string]any, attr sdmxDimension, idx int) {
	if idx < 0 || idx >= len(attr.Values) {
		return
	}
	rec[attr.ID] = attr.Values[idx].Name
	rec[attr.ID+"_ID"] = attr.Values[idx].ID
}

// attrIndex interprets an attribute slot, which may be a JSON number or
// null.
func attrIndex(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func toNumber(raw any) any {
	switch v := raw.(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return nil
	case nil:
		return nil
	default:
		return nil
	}
}

// sortSDMXRecords orders the flattened output deterministically, since
// map iteration would otherwise shuffle it between calls.
func sortSDMXRecords(records []map[string]any) {
	sort.SliceStable(records, func(i, j int) bool {
		a, _ := records[i]["TIME_PERIOD"].(string)
		b, _ := records[j]["TIME_PERIOD"].(string)
		if a != b {
			return a < b
		}
		return fingerprint(records[i]) < fingerprint(records[j])
	})
}

func fingerprint(rec map[string]any) string {
	b, _ := json.Marshal(rec)
	return string(b)
}
