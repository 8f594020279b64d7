package experiment

import (
	"fmt"

	"expstat/domain/stats"
)

// ComparisonOperator defines how a metric is compared against its threshold.
type ComparisonOperator string

const (
	OperatorIncrease    ComparisonOperator = "increase"
	OperatorDecrease    ComparisonOperator = "decrease"
	OperatorEquals      ComparisonOperator = "equals"
	OperatorGreaterThan ComparisonOperator = "greater_than"
	OperatorLessThan    ComparisonOperator = "less_than"
)

// ParseComparisonOperator validates a wire value into a ComparisonOperator.
func ParseComparisonOperator(s string) (ComparisonOperator, error) {
	switch op := ComparisonOperator(s); op {
	case OperatorIncrease, OperatorDecrease, OperatorEquals, OperatorGreaterThan, OperatorLessThan:
		return op, nil
	default:
		return "", fmt.Errorf("unknown comparison operator %q", s)
	}
}

// SuccessCriteria defines what makes an experiment successful. Created once
// at experiment-creation time and never mutated afterwards.
type SuccessCriteria struct {
	Metric    string             `json:"metric"`
	Threshold float64            `json:"threshold"` // percentage points
	Operator  ComparisonOperator `json:"operator"`
}

// MetricSet names the primary metric and any secondary metrics to compare.
type MetricSet struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary,omitempty"`
}

// All returns primary followed by the secondary metrics.
func (m MetricSet) All() []string {
	out := make([]string, 0, len(m.Secondary)+1)
	out = append(out, m.Primary)
	out = append(out, m.Secondary...)
	return out
}

// VideoGroups holds explicit treatment/control video assignments.
type VideoGroups struct {
	Treatment []string `json:"treatment,omitempty"`
	Control   []string `json:"control,omitempty"`
}

// HasBoth reports whether both arms are populated.
func (v *VideoGroups) HasBoth() bool {
	return v != nil && len(v.Treatment) > 0 && len(v.Control) > 0
}

// AllVideos returns treatment followed by control IDs.
func (v *VideoGroups) AllVideos() []string {
	if v == nil {
		return nil
	}
	all := make([]string, 0, len(v.Treatment)+len(v.Control))
	all = append(all, v.Treatment...)
	all = append(all, v.Control...)
	return all
}

// Experiment is the slice of an experiment definition the analysis pipeline
// consumes. Persistence, CRUD and calendar-derived status live outside this
// module.
type Experiment struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Hypothesis    string          `json:"hypothesis"`
	StartDate     string          `json:"start_date"`
	EndDate       string          `json:"end_date"`
	BaselineStart string          `json:"baseline_start,omitempty"`
	BaselineEnd   string          `json:"baseline_end,omitempty"`
	Metrics       MetricSet       `json:"metrics"`
	Criteria      SuccessCriteria `json:"success_criteria"`
	VideoIDs      *VideoGroups    `json:"video_ids,omitempty"`
}

// HasBaseline reports whether a baseline window was configured.
func (e *Experiment) HasBaseline() bool {
	return e.BaselineStart != "" && e.BaselineEnd != ""
}

// RelativeChange is the nested treatment-vs-control delta on a comparison.
type RelativeChange struct {
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// MetricComparison is the per-metric comparison record the evaluator and the
// reporting layer consume. The record carries two possible shapes: a
// baseline-relative comparison (ExperimentValue vs BaselineValue) and, when
// explicit video groups exist, a treatment/control comparison which takes
// precedence.
type MetricComparison struct {
	Metric          string   `json:"metric"`
	ExperimentValue float64  `json:"experiment_value"`
	BaselineValue   *float64 `json:"baseline_value,omitempty"`
	Change          *float64 `json:"change,omitempty"`
	ChangePercent   *float64 `json:"change_percent,omitempty"`

	TreatmentValue     *float64        `json:"treatment_value,omitempty"`
	ControlValue       *float64        `json:"control_value,omitempty"`
	TreatmentVsControl *RelativeChange `json:"treatment_vs_control,omitempty"`

	// Decision trail written back by the analysis pipeline for reporting.
	CompoundTarget  *float64 `json:"compound_target,omitempty"`
	CompoundSuccess *bool    `json:"compound_success,omitempty"`

	// Welch t-test over per-video values, when both groups had enough rows.
	Significance *stats.StatisticalResult `json:"significance,omitempty"`
}

// DecisionPath names which branch of the evaluator produced a Decision.
type DecisionPath string

const (
	PathTreatmentVsControl DecisionPath = "treatment_vs_control"
	PathBaseline           DecisionPath = "baseline"
	PathPercentFallback    DecisionPath = "change_percent_fallback"
	PathNoComparison       DecisionPath = "no_comparison"
)

// Decision is the evaluator's verdict plus its audit trail. CompoundTarget is
// populated (rounded to 2 decimals) only on the increase/decrease compound
// paths, matching what reporting exposes.
type Decision struct {
	Success        bool         `json:"success"`
	CompoundTarget *float64     `json:"compound_target,omitempty"`
	Path           DecisionPath `json:"path"`
}
