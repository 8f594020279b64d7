// Package analysis orchestrates one experiment analysis: it pulls metric rows
// from the analytics collaborator, aggregates them into per-metric comparison
// records, runs significance testing where the data supports it, and applies
// the compounding success criteria to the primary metric.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	mstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"

	"expstat/domain/core"
	"expstat/domain/experiment"
	"expstat/domain/stats"
	"expstat/internal/errors"
	"expstat/internal/stats/engine"
	"expstat/ports"
)

// minGroupSamples is the smallest per-group row count worth a t-test.
const minGroupSamples = 2

// Period describes the date windows an analysis covered.
type Period struct {
	Baseline   string `json:"baseline,omitempty"`
	Experiment string `json:"experiment"`
}

// Analysis is the result record for one experiment run. It is a computed
// view: the owning experiment persists it, this package never does.
type Analysis struct {
	ID             core.AnalysisID                         `json:"id"`
	ExperimentID   string                                  `json:"experiment_id"`
	ExperimentName string                                  `json:"experiment_name"`
	Hypothesis     string                                  `json:"hypothesis"`
	AnalysisDate   core.Timestamp                          `json:"analysis_date"`
	Period         Period                                  `json:"period"`
	Metrics        map[string]*experiment.MetricComparison `json:"metrics"`
	Success        bool                                    `json:"success"`
	Conclusion     string                                  `json:"conclusion"`
}

// Analyzer runs experiment analyses. Safe for concurrent use: all per-run
// state lives on the stack of AnalyzeExperiment.
type Analyzer struct {
	source      ports.AnalyticsSource
	engine      *engine.Engine
	concurrency int64
}

// NewAnalyzer creates an analyzer. Concurrency bounds how many secondary
// metrics are compared in parallel.
func NewAnalyzer(source ports.AnalyticsSource, eng *engine.Engine, concurrency int) *Analyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Analyzer{source: source, engine: eng, concurrency: int64(concurrency)}
}

// AnalyzeExperiment collects data for the experiment and baseline windows,
// compares every configured metric, and decides success from the primary
// metric against the experiment's criteria.
func (a *Analyzer) AnalyzeExperiment(ctx context.Context, exp *experiment.Experiment) (*Analysis, error) {
	metricNames := exp.Metrics.All()
	if exp.Metrics.Primary == "" {
		return nil, errors.Validationf("experiment %s has no primary metric", exp.ID)
	}

	expRows, err := a.collectRows(ctx, exp, exp.StartDate, exp.EndDate, metricNames)
	if err != nil {
		return nil, errors.ExternalServiceError("analytics", err)
	}

	var baseRows []ports.MetricRow
	if exp.HasBaseline() {
		baseRows, err = a.collectRows(ctx, exp, exp.BaselineStart, exp.BaselineEnd, metricNames)
		if err != nil {
			return nil, errors.ExternalServiceError("analytics", err)
		}
	}

	analysis := &Analysis{
		ID:             core.AnalysisID(core.NewID()),
		ExperimentID:   exp.ID,
		ExperimentName: exp.Name,
		Hypothesis:     exp.Hypothesis,
		AnalysisDate:   core.Now(),
		Period: Period{
			Experiment: fmt.Sprintf("%s to %s", exp.StartDate, exp.EndDate),
		},
		Metrics: make(map[string]*experiment.MetricComparison, len(metricNames)),
	}
	if exp.HasBaseline() {
		analysis.Period.Baseline = fmt.Sprintf("%s to %s", exp.BaselineStart, exp.BaselineEnd)
	}

	primary := a.compareMetric(exp.Metrics.Primary, expRows, baseRows, exp)

	decision := experiment.Evaluate(*primary, exp.Criteria)
	analysis.Success = decision.Success
	if decision.CompoundTarget != nil {
		primary.CompoundTarget = decision.CompoundTarget
		success := decision.Success
		primary.CompoundSuccess = &success
	}
	analysis.Metrics[exp.Metrics.Primary] = primary

	if err := a.compareSecondary(ctx, exp, expRows, baseRows, analysis); err != nil {
		return nil, err
	}

	analysis.Conclusion = buildConclusion(analysis, exp)
	return analysis, nil
}

// compareSecondary fills in the non-primary metrics under bounded concurrency.
func (a *Analyzer) compareSecondary(ctx context.Context, exp *experiment.Experiment, expRows, baseRows []ports.MetricRow, analysis *Analysis) error {
	sem := semaphore.NewWeighted(a.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, metric := range exp.Metrics.Secondary {
		if metric == exp.Metrics.Primary {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return errors.Wrap(err, "secondary metric comparison cancelled")
		}

		wg.Add(1)
		go func(metric string) {
			defer wg.Done()
			defer sem.Release(1)

			rec := a.compareMetric(metric, expRows, baseRows, exp)

			mu.Lock()
			analysis.Metrics[metric] = rec
			mu.Unlock()
		}(metric)
	}

	wg.Wait()
	return nil
}

func (a *Analyzer) collectRows(ctx context.Context, exp *experiment.Experiment, start, end string, metrics []string) ([]ports.MetricRow, error) {
	if videos := exp.VideoIDs.AllVideos(); len(videos) > 0 {
		return a.source.VideoMetrics(ctx, videos, start, end, metrics)
	}
	return a.source.AggregateMetrics(ctx, start, end, metrics)
}

// compareMetric aggregates one metric into a comparison record: the
// baseline-relative shape always, plus the treatment/control shape when the
// experiment has explicit video groups.
func (a *Analyzer) compareMetric(metric string, expRows, baseRows []ports.MetricRow, exp *experiment.Experiment) *experiment.MetricComparison {
	expValue := sumMetric(expRows, metric)

	rec := &experiment.MetricComparison{
		Metric:          metric,
		ExperimentValue: expValue,
	}

	if baseRows != nil {
		baseline := sumMetric(baseRows, metric)
		rec.BaselineValue = &baseline

		if baseline != 0 {
			change := expValue - baseline
			changePercent := round2(change / baseline * 100)
			rec.Change = &change
			rec.ChangePercent = &changePercent
		}
	}

	if exp.VideoIDs.HasBoth() {
		treatmentVals := metricValuesForVideos(expRows, metric, exp.VideoIDs.Treatment)
		controlVals := metricValuesForVideos(expRows, metric, exp.VideoIDs.Control)

		treatment := sum(treatmentVals)
		control := sum(controlVals)
		rec.TreatmentValue = &treatment
		rec.ControlValue = &control

		if control != 0 {
			change := treatment - control
			rec.TreatmentVsControl = &experiment.RelativeChange{
				Change:        change,
				ChangePercent: round2(change / control * 100),
			}
		}

		rec.Significance = a.groupSignificance(treatmentVals, controlVals)
	}

	return rec
}

// groupSignificance runs Welch's t-test over per-video values when both
// groups have enough observations. Degenerate groups yield no verdict rather
// than an error.
func (a *Analyzer) groupSignificance(treatmentVals, controlVals []float64) *stats.StatisticalResult {
	if len(treatmentVals) < minGroupSamples || len(controlVals) < minGroupSamples {
		return nil
	}

	treatment, ok := summarize(treatmentVals)
	if !ok {
		return nil
	}
	control, ok := summarize(controlVals)
	if !ok {
		return nil
	}

	result, err := a.engine.TTestTwoSample(treatment, control)
	if err != nil {
		return nil
	}
	return result
}

func summarize(values []float64) (stats.SampleSummary, bool) {
	mean, err := mstats.Mean(values)
	if err != nil {
		return stats.SampleSummary{}, false
	}
	stdDev, err := mstats.StandardDeviationSample(values)
	if err != nil {
		return stats.SampleSummary{}, false
	}
	return stats.SampleSummary{Mean: mean, StdDev: stdDev, Size: len(values)}, true
}

func sumMetric(rows []ports.MetricRow, metric string) float64 {
	var total float64
	for _, row := range rows {
		if v, ok := row.Value(metric); ok {
			total += v
		}
	}
	return total
}

func metricValuesForVideos(rows []ports.MetricRow, metric string, videoIDs []string) []float64 {
	ids := make(map[string]struct{}, len(videoIDs))
	for _, id := range videoIDs {
		ids[id] = struct{}{}
	}

	var values []float64
	for _, row := range rows {
		if _, ok := ids[row.VideoID]; !ok {
			continue
		}
		if v, ok := row.Value(metric); ok {
			values = append(values, v)
		}
	}
	return values
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// buildConclusion renders the experiment-level summary from the primary
// metric's comparison.
func buildConclusion(analysis *Analysis, exp *experiment.Experiment) string {
	rec := analysis.Metrics[exp.Metrics.Primary]

	var parts []string
	if analysis.Success {
		parts = append(parts, fmt.Sprintf("Experiment successful: %s", exp.Hypothesis))
	} else {
		parts = append(parts, fmt.Sprintf("Experiment unsuccessful: %s", exp.Hypothesis))
	}

	switch {
	case rec.TreatmentVsControl != nil:
		treatment := deref(rec.TreatmentValue)
		control := deref(rec.ControlValue)
		parts = append(parts, fmt.Sprintf("Treatment: %.1f %s vs Control: %.1f %s (%+.1f%% change).",
			treatment, rec.Metric, control, rec.Metric, rec.TreatmentVsControl.ChangePercent))

		if rec.CompoundTarget != nil {
			target := *rec.CompoundTarget
			parts = append(parts, fmt.Sprintf("Compound target: %.1f %s.", target, rec.Metric))

			hit := treatment >= target
			relation := ">="
			if exp.Criteria.Operator == experiment.OperatorDecrease {
				hit = treatment <= target
				relation = "<="
			}
			if hit {
				parts = append(parts, fmt.Sprintf("Achieved: %.1f %s %.1f.", treatment, relation, target))
			} else {
				parts = append(parts, fmt.Sprintf("Missed: %.1f not %s %.1f.", treatment, relation, target))
			}
		}

	case rec.ChangePercent != nil:
		parts = append(parts, fmt.Sprintf("%s changed by %+.1f%% compared to baseline.",
			titleCase(rec.Metric), *rec.ChangePercent))
	}

	parts = append(parts, fmt.Sprintf("Threshold: %v%% %s in %s.",
		exp.Criteria.Threshold, exp.Criteria.Operator, exp.Criteria.Metric))

	return strings.Join(parts, " ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
