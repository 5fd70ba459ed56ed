package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/marketscope/marketscope/internal/notify"
)

// Segmentation narrows a TAM projection to an addressable slice.
type Segmentation struct {
	Factor    float64 `json:"factor"`
	Rationale string  `json:"rationale,omitempty"`
}

// TAMRequest are the inputs of the TAM projection.
type TAMRequest struct {
	BaseMarketSize   float64
	AnnualGrowthRate float64
	ProjectionYears  int
	Segmentation     *Segmentation
}

// YearProjection is one projected year.
type YearProjection struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// TAMResult is the Total Addressable Market projection.
type TAMResult struct {
	CalculatedTAM float64          `json:"calculatedTam"`
	YearByYear    []YearProjection `json:"yearByYear"`
	Assumptions   []string         `json:"assumptions"`
}

// CalculateTAM compounds the base market size over the projection
// horizon: yearByYear[i] = base * (1+rate)^i. The final year, scaled by
// the segmentation factor when present, is the calculated TAM.
func (s *Service) CalculateTAM(req TAMRequest) (*TAMResult, error) {
	if req.BaseMarketSize <= 0 {
		return nil, fmt.Errorf("tam: baseMarketSize must be positive")
	}
	if req.AnnualGrowthRate <= -1 {
		return nil, fmt.Errorf("tam: annualGrowthRate must be greater than -1")
	}
	if req.ProjectionYears < 1 || req.ProjectionYears > 50 {
		return nil, fmt.Errorf("tam: projectionYears must be between 1 and 50")
	}

	res := &TAMResult{
		YearByYear: make([]YearProjection, 0, req.ProjectionYears),
		Assumptions: []string{
			fmt.Sprintf("base market size: %.2f", req.BaseMarketSize),
			fmt.Sprintf("annual growth rate: %.2f%%", req.AnnualGrowthRate*100),
			fmt.Sprintf("projection horizon: %d years", req.ProjectionYears),
		},
	}

	for i := 1; i <= req.ProjectionYears; i++ {
		v := req.BaseMarketSize * math.Pow(1+req.AnnualGrowthRate, float64(i))
		res.YearByYear = append(res.YearByYear, YearProjection{Year: i, Value: v})
	}

	res.CalculatedTAM = res.YearByYear[len(res.YearByYear)-1].Value
	if seg := req.Segmentation; seg != nil {
		if seg.Factor <= 0 || seg.Factor > 1 {
			return nil, fmt.Errorf("tam: segmentation factor must be in (0, 1]")
		}
		res.CalculatedTAM *= seg.Factor
		assumption := fmt.Sprintf("segmentation factor: %.2f", seg.Factor)
		if seg.Rationale != "" {
			assumption += " (" + seg.Rationale + ")"
		}
		res.Assumptions = append(res.Assumptions, assumption)
	}

	if s.cfg != nil && res.CalculatedTAM >= s.cfg.TAMAlertThreshold {
		s.event(notify.EventLargeTAM, "", map[string]any{
			"calculatedTam": res.CalculatedTAM,
			"threshold":     s.cfg.TAMAlertThreshold,
		})
	}
	return res, nil
}

// SAMConstraint is one serviceability constraint applied to a TAM.
type SAMConstraint struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

// SAMResult is the Serviceable Addressable Market derivation.
type SAMResult struct {
	TAM                float64  `json:"tam"`
	SAM                float64  `json:"sam"`
	EffectiveFactor    float64  `json:"effectiveFactor"`
	AppliedConstraints []string `json:"appliedConstraints"`
}

// CalculateSAM multiplies a TAM by each constraint factor in turn.
func (s *Service) CalculateSAM(tam float64, constraints []SAMConstraint) (*SAMResult, error) {
	if tam <= 0 {
		return nil, fmt.Errorf("sam: tam must be positive")
	}
	if len(constraints) == 0 {
		return nil, fmt.Errorf("sam: at least one constraint is required")
	}

	res := &SAMResult{TAM: tam, SAM: tam, EffectiveFactor: 1}
	for _, c := range constraints {
		if c.Factor <= 0 || c.Factor > 1 {
			return nil, fmt.Errorf("sam: constraint %q factor must be in (0, 1]", c.Name)
		}
		res.SAM *= c.Factor
		res.EffectiveFactor *= c.Factor
		res.AppliedConstraints = append(res.AppliedConstraints,
			fmt.Sprintf("%s: x%.2f", c.Name, c.Factor))
	}
	return res, nil
}

// ForecastScenario is one named growth path.
type ForecastScenario struct {
	Name       string           `json:"name"`
	GrowthRate float64          `json:"growthRate"`
	FinalValue float64          `json:"finalValue"`
	YearByYear []YearProjection `json:"yearByYear"`
}

// ForecastResult is a multi-scenario market projection.
type ForecastResult struct {
	BaseValue float64            `json:"baseValue"`
	Years     int                `json:"years"`
	Scenarios []ForecastScenario `json:"scenarios"`
}

// defaultScenarios is used when the caller supplies none.
var defaultScenarios = map[string]float64{
	"conservative": 0.05,
	"base":         0.15,
	"aggressive":   0.30,
}

// MarketForecast projects the base value under each scenario's growth
// rate. Scenarios are emitted in name order for reproducible output.
func (s *Service) MarketForecast(baseValue float64, years int, scenarios map[string]float64) (*ForecastResult, error) {
	if baseValue <= 0 {
		return nil, fmt.Errorf("forecast: baseValue must be positive")
	}
	if years < 1 || years > 50 {
		return nil, fmt.Errorf("forecast: years must be between 1 and 50")
	}
	if len(scenarios) == 0 {
		scenarios = defaultScenarios
	}

	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &ForecastResult{BaseValue: baseValue, Years: years}
	for _, name := range names {
		rate := scenarios[name]
		if rate <= -1 {
			return nil, fmt.Errorf("forecast: scenario %q growth rate must be greater than -1", name)
		}

		sc := ForecastScenario{Name: name, GrowthRate: rate}
		for i := 1; i <= years; i++ {
			sc.YearByYear = append(sc.YearByYear, YearProjection{
				Year:  i,
				Value: baseValue * math.Pow(1+rate, float64(i)),
			})
		}
		sc.FinalValue = sc.YearByYear[len(sc.YearByYear)-1].Value
		res.Scenarios = append(res.Scenarios, sc)

		if s.cfg != nil && rate >= s.cfg.ForecastCAGRAlert {
			s.event(notify.EventHighCAGR, "", map[string]any{
				"scenario":   name,
				"growthRate": rate,
				"threshold":  s.cfg.ForecastCAGRAlert,
			})
		}
	}
	return res, nil
}

// Segment is one named market slice.
type Segment struct {
	Name  string  `json:"name"`
	Share float64 `json:"share"`
	Value float64 `json:"value,omitempty"`
}

// defaultSegments splits a market along the usual company-size bands.
var defaultSegments = []Segment{
	{Name: "enterprise", Share: 0.45},
	{Name: "mid-market", Share: 0.35},
	{Name: "small-business", Share: 0.20},
}

// SegmentsResult is the segmentation of a total market size.
type SegmentsResult struct {
	TotalMarketSize float64   `json:"totalMarketSize"`
	Segments        []Segment `json:"segments"`
}

// MarketSegments distributes a total market size across the given
// shares. Shares are normalized so the segments always sum to the
// total.
func (s *Service) MarketSegments(totalMarketSize float64, segments []Segment) (*SegmentsResult, error) {
	if totalMarketSize <= 0 {
		return nil, fmt.Errorf("segments: totalMarketSize must be positive")
	}
	if len(segments) == 0 {
		segments = defaultSegments
	}

	var shareSum float64
	for _, seg := range segments {
		if seg.Share <= 0 {
			return nil, fmt.Errorf("segments: segment %q share must be positive", seg.Name)
		}
		shareSum += seg.Share
	}

	res := &SegmentsResult{TotalMarketSize: totalMarketSize}
	for _, seg := range segments {
		share := seg.Share / shareSum
		res.Segments = append(res.Segments, Segment{
			Name:  seg.Name,
			Share: share,
			Value: totalMarketSize * share,
		})
	}
	return res, nil
}
