package stats

import "fmt"

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// SampleSummary describes a continuous sample by its summary statistics.
// The engine never sees raw observations; callers aggregate first.
type SampleSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Size   int     `json:"size"`
}

// ProportionSummary describes a binomial count pair (e.g. conversions/views).
type ProportionSummary struct {
	Successes int `json:"successes"`
	Total     int `json:"total"`
}

// Rate returns successes/total. Callers must have validated Total > 0.
func (p ProportionSummary) Rate() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Successes) / float64(p.Total)
}

// StatisticalResult bundles one significance verdict.
// INVARIANTS:
// - PValue and Power always in [0, 1]
// - EffectSize always finite and >= 0 (Cohen's d or Cohen's h)
// - SampleSizeNeeded >= 100 (floor), capped at the infeasibility sentinel
//   when the effect size is exactly zero
type StatisticalResult struct {
	IsSignificant    bool    `json:"is_significant"`
	PValue           float64 `json:"p_value"`
	ConfidenceLevel  float64 `json:"confidence_level"`
	EffectSize       float64 `json:"effect_size"`
	Power            float64 `json:"power"`
	SampleSizeNeeded int     `json:"sample_size_needed"`
	TestType         string  `json:"test_type"`
	Conclusion       string  `json:"conclusion"`
}

// MetricType selects which test a GroupData pair feeds.
const (
	MetricTypeRate       = "rate"
	MetricTypeContinuous = "continuous"
)

// GroupData is the wire shape for one experiment arm: either a count pair
// (rate metrics) or mean/std/size (continuous metrics). Optional fields stay
// nil when absent so validation can name what is missing.
type GroupData struct {
	Successes *int     `json:"successes,omitempty"`
	Total     *int     `json:"total,omitempty"`
	Mean      *float64 `json:"mean,omitempty"`
	Std       *float64 `json:"std,omitempty"`
	Size      *int     `json:"size,omitempty"`
}

// Proportion extracts a ProportionSummary, reporting which field is missing.
func (g GroupData) Proportion(name string) (ProportionSummary, error) {
	if g.Successes == nil || g.Total == nil {
		return ProportionSummary{}, fmt.Errorf("%s must provide successes and total for rate metrics", name)
	}
	return ProportionSummary{Successes: *g.Successes, Total: *g.Total}, nil
}

// Sample extracts a SampleSummary, reporting which field is missing.
func (g GroupData) Sample(name string) (SampleSummary, error) {
	if g.Mean == nil || g.Std == nil || g.Size == nil {
		return SampleSummary{}, fmt.Errorf("%s must provide mean, std and size for continuous metrics", name)
	}
	return SampleSummary{Mean: *g.Mean, StdDev: *g.Std, Size: *g.Size}, nil
}
