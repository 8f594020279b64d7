// Package engine implements the statistical significance and sample-size
// engine behind experiment analysis: Welch's two-sample t-test, the pooled
// two-proportion z-test, effect sizes (Cohen's d and h), power, and
// minimum-sample-size planning.
//
// The engine is pure and stateless apart from its configured confidence
// level, so one instance can be shared across goroutines without locking.
// Malformed input is rejected up front with a validation error naming the
// offending parameter; degenerate-but-valid input (zero variance, zero
// effect) always produces a defined finite result.
package engine

import (
	"fmt"
	"math"
	"strings"

	"expstat/domain/stats"
	"expstat/internal/errors"
)

const (
	// MinSampleSizePerGroup is a planning floor, not a statistical artifact:
	// recommendations never go below it.
	MinSampleSizePerGroup = 100

	// InfeasibleSampleSize is the sentinel returned when the effect size is
	// exactly zero and no sample size can detect it.
	InfeasibleSampleSize = 10000

	// DefaultPowerTarget is the power used for the sample_size_needed field
	// of test results.
	DefaultPowerTarget = 0.80

	// DefaultConfidenceLevel is used when callers do not configure one.
	DefaultConfidenceLevel = 0.95
)

// Test type identifiers, for audit only.
const (
	TestTypeWelchT      = "Two-sample t-test (Welch's)"
	TestTypeProportionZ = "Z-test for proportions"
)

// Engine performs statistical analysis on experiment results.
type Engine struct {
	confidenceLevel float64
	alpha           float64
	dist            *Distributions
}

// New creates an engine for the given confidence level. The level is fixed
// for the engine's lifetime; callers wanting a different one construct a new
// engine.
func New(confidenceLevel float64) (*Engine, error) {
	if err := validateConfidenceLevel(confidenceLevel); err != nil {
		return nil, err
	}
	return &Engine{
		confidenceLevel: confidenceLevel,
		alpha:           1 - confidenceLevel,
		dist:            NewDistributions(),
	}, nil
}

// NewDefault creates an engine at the default 95% confidence level.
func NewDefault() *Engine {
	e, err := New(DefaultConfidenceLevel)
	if err != nil {
		// unreachable: the default level is always valid
		panic(err)
	}
	return e
}

// ConfidenceLevel returns the configured confidence level.
func (e *Engine) ConfidenceLevel() float64 {
	return e.confidenceLevel
}

// Alpha returns the significance threshold 1 - confidence level.
func (e *Engine) Alpha() float64 {
	return e.alpha
}

// TTestTwoSample performs Welch's two-sample t-test on summarized samples.
// Used for continuous metrics like average view duration.
func (e *Engine) TTestTwoSample(sample1, sample2 stats.SampleSummary) (*stats.StatisticalResult, error) {
	if err := validateSampleSummary(sample1, "sample1"); err != nil {
		return nil, err
	}
	if err := validateSampleSummary(sample2, "sample2"); err != nil {
		return nil, err
	}

	n1 := float64(sample1.Size)
	n2 := float64(sample2.Size)
	var1 := sample1.StdDev * sample1.StdDev
	var2 := sample2.StdDev * sample2.StdDev

	se := math.Sqrt(var1/n1 + var2/n2)
	var tStat float64
	if se > 0 {
		tStat = (sample1.Mean - sample2.Mean) / se
	}

	df := welchDF(sample1.StdDev, sample1.Size, sample2.StdDev, sample2.Size)
	pValue := e.dist.TTestPValue(tStat, df)
	if !isFinite(pValue) {
		return nil, errors.Computation(
			fmt.Sprintf("t-test produced a non-finite p-value (t=%v, df=%v)", tStat, df), nil)
	}

	effectSize := e.dist.CohenD(sample1.Mean, sample1.StdDev, sample1.Size,
		sample2.Mean, sample2.StdDev, sample2.Size)

	power := e.dist.Power(effectSize, minInt(sample1.Size, sample2.Size), e.alpha)
	needed := e.dist.SampleSizePerGroup(effectSize, DefaultPowerTarget, e.alpha)

	isSignificant := pValue < e.alpha

	return &stats.StatisticalResult{
		IsSignificant:    isSignificant,
		PValue:           pValue,
		ConfidenceLevel:  e.confidenceLevel,
		EffectSize:       effectSize,
		Power:            power,
		SampleSizeNeeded: needed,
		TestType:         TestTypeWelchT,
		Conclusion:       buildConclusion(isSignificant, pValue, effectSize, sample1.Mean, sample2.Mean),
	}, nil
}

// ZTestProportions performs a pooled two-proportion z-test.
// Used for rate metrics like CTR or conversion rate. Zero successes in both
// groups is valid and yields a null result rather than an error.
func (e *Engine) ZTestProportions(sample1, sample2 stats.ProportionSummary) (*stats.StatisticalResult, error) {
	if err := validateProportionSummary(sample1, "sample1"); err != nil {
		return nil, err
	}
	if err := validateProportionSummary(sample2, "sample2"); err != nil {
		return nil, err
	}

	p1 := sample1.Rate()
	p2 := sample2.Rate()

	pPool := float64(sample1.Successes+sample2.Successes) / float64(sample1.Total+sample2.Total)
	var se float64
	if pPool > 0 && pPool < 1 {
		se = math.Sqrt(pPool * (1 - pPool) * (1/float64(sample1.Total) + 1/float64(sample2.Total)))
	}

	var zStat float64
	if se > 0 {
		zStat = (p1 - p2) / se
	}

	pValue := e.dist.ZTestPValue(zStat)
	effectSize := e.dist.CohenH(p1, p2)
	power := e.dist.Power(effectSize, minInt(sample1.Total, sample2.Total), e.alpha)
	needed := e.dist.SampleSizePerGroup(effectSize, DefaultPowerTarget, e.alpha)

	isSignificant := pValue < e.alpha

	return &stats.StatisticalResult{
		IsSignificant:    isSignificant,
		PValue:           pValue,
		ConfidenceLevel:  e.confidenceLevel,
		EffectSize:       effectSize,
		Power:            power,
		SampleSizeNeeded: needed,
		TestType:         TestTypeProportionZ,
		Conclusion:       buildConclusion(isSignificant, pValue, effectSize, p1*100, p2*100),
	}, nil
}

// MinimumSampleSize calculates the per-variant sample size needed to detect
// an expected lift over a baseline rate at the requested power. This is a
// planning tool used before an experiment runs.
func (e *Engine) MinimumSampleSize(baselineRate, expectedLift, power float64) (int, error) {
	if err := validateRate(baselineRate, "baseline_rate"); err != nil {
		return 0, err
	}
	if !isFinite(expectedLift) {
		return 0, errors.Validationf("expected_lift must be a finite number, got %v", expectedLift)
	}
	if expectedLift < -1.0 {
		return 0, errors.Validationf("expected_lift must be >= -1, got %v", expectedLift)
	}
	if !isFinite(power) || power <= 0 || power >= 1 {
		return 0, errors.Validationf("power must be between 0 and 1 exclusive, got %v", power)
	}

	newRate := baselineRate * (1 + expectedLift)
	if newRate < 0 || newRate > 1 {
		return 0, errors.Validationf(
			"baseline_rate (%v) * (1 + expected_lift (%v)) must result in a rate between 0 and 1, got %v",
			baselineRate, expectedLift, newRate)
	}

	effectSize := e.dist.CohenH(baselineRate, newRate)
	return e.dist.SampleSizePerGroup(effectSize, power, e.alpha), nil
}

// ConfidenceInterval returns the (lo, hi) interval around a sample mean at
// the engine's confidence level. Small samples (size < 30) use the Student-t
// critical value; larger samples use the normal critical value.
func (e *Engine) ConfidenceInterval(mean, std float64, size int) (float64, float64, error) {
	if err := validateSampleSummary(stats.SampleSummary{Mean: mean, StdDev: std, Size: size}, "sample"); err != nil {
		return 0, 0, err
	}

	se := std / math.Sqrt(float64(size))

	var critical float64
	if size >= 2 && size < 30 {
		critical = e.dist.TCritical(e.confidenceLevel, size-1)
	} else {
		critical = e.dist.ZCritical(e.confidenceLevel)
	}

	margin := critical * se
	return mean - margin, mean + margin, nil
}

// AnalyzeExperimentResults dispatches a treatment/control pair to the right
// test: "rate" runs the proportion z-test, anything else runs Welch's t-test.
// The treatment group is always sample1 so conclusions read treatment-first.
func (e *Engine) AnalyzeExperimentResults(control, treatment stats.GroupData, metricType string) (*stats.StatisticalResult, error) {
	if metricType == "" || metricType == stats.MetricTypeRate {
		t, err := treatment.Proportion("treatment")
		if err != nil {
			return nil, errors.Validationf("%v", err)
		}
		c, err := control.Proportion("control")
		if err != nil {
			return nil, errors.Validationf("%v", err)
		}
		return e.ZTestProportions(t, c)
	}

	t, err := treatment.Sample("treatment")
	if err != nil {
		return nil, errors.Validationf("%v", err)
	}
	c, err := control.Sample("control")
	if err != nil {
		return nil, errors.Validationf("%v", err)
	}
	return e.TTestTwoSample(t, c)
}

// QuickSignificanceTest is a convenience helper for callers holding only a
// value and a size per arm. Rate values become success counts; continuous
// values assume a 10% coefficient of variation.
func QuickSignificanceTest(controlValue float64, controlSize int, treatmentValue float64, treatmentSize int, metricType string) (*stats.StatisticalResult, error) {
	e := NewDefault()

	if metricType == "" || metricType == stats.MetricTypeRate {
		return e.ZTestProportions(
			stats.ProportionSummary{Successes: int(treatmentValue * float64(treatmentSize)), Total: treatmentSize},
			stats.ProportionSummary{Successes: int(controlValue * float64(controlSize)), Total: controlSize},
		)
	}

	return e.TTestTwoSample(
		stats.SampleSummary{Mean: treatmentValue, StdDev: treatmentValue * 0.1, Size: treatmentSize},
		stats.SampleSummary{Mean: controlValue, StdDev: controlValue * 0.1, Size: controlSize},
	)
}

// welchDF computes the Welch–Satterthwaite degrees of freedom, clamped to
// [1, n1+n2-2]. Samples of size <= 1 degrade to df=1; two zero-variance
// samples use the pooled df.
func welchDF(std1 float64, n1 int, std2 float64, n2 int) float64 {
	if n1 <= 1 || n2 <= 1 {
		return 1.0
	}
	if std1 == 0 && std2 == 0 {
		return float64(n1 + n2 - 2)
	}

	s1 := (std1 * std1) / float64(n1)
	s2 := (std2 * std2) / float64(n2)

	numerator := (s1 + s2) * (s1 + s2)
	denominator := (s1*s1)/float64(n1-1) + (s2*s2)/float64(n2-1)

	if denominator <= 0 || !isFinite(numerator) || !isFinite(denominator) {
		return 1.0
	}

	df := numerator / denominator
	return math.Max(1.0, math.Min(df, float64(n1+n2-2)))
}

// buildConclusion renders the human-readable summary attached to every
// result. Non-finite intermediates sanitize to neutral values so the text is
// always well-formed.
func buildConclusion(isSignificant bool, pValue, effectSize, value1, value2 float64) string {
	if !isFinite(pValue) {
		pValue = 1.0
	}

	var parts []string
	if isSignificant {
		parts = append(parts, fmt.Sprintf("Statistically significant difference detected (p=%.4f).", pValue))
	} else {
		parts = append(parts, fmt.Sprintf("No statistically significant difference found (p=%.4f).", pValue))
	}

	var change float64
	if value2 != 0 && isFinite(value1) && isFinite(value2) {
		change = (value1 - value2) / value2 * 100
		if !isFinite(change) {
			change = 0
		}
	}

	direction := "decrease"
	if change > 0 {
		direction = "increase"
	}
	tag := "not significant"
	if isSignificant {
		tag = "significant"
	}
	parts = append(parts, fmt.Sprintf("Treatment shows %.1f%% %s (%s).", math.Abs(change), direction, tag))

	if !isFinite(effectSize) {
		effectSize = 0
	}
	effectDesc := "large"
	if effectSize < 0.2 {
		effectDesc = "small"
	} else if effectSize < 0.5 {
		effectDesc = "medium"
	}
	parts = append(parts, fmt.Sprintf("Effect size: %.3f (%s).", effectSize, effectDesc))

	return strings.Join(parts, " ")
}

// Input validation

func validateSampleSummary(s stats.SampleSummary, name string) error {
	if s.Size <= 0 {
		return errors.Validationf("%s_size must be a positive integer, got %d", name, s.Size)
	}
	if !isFinite(s.StdDev) {
		return errors.Validationf("%s_std must be a finite number, got %v", name, s.StdDev)
	}
	if s.StdDev < 0 {
		return errors.Validationf("%s_std must be non-negative, got %v", name, s.StdDev)
	}
	if !isFinite(s.Mean) {
		return errors.Validationf("%s_mean must be a finite number, got %v", name, s.Mean)
	}
	return nil
}

func validateProportionSummary(p stats.ProportionSummary, name string) error {
	if p.Total <= 0 {
		return errors.Validationf("%s_total must be a positive integer, got %d", name, p.Total)
	}
	if p.Successes < 0 {
		return errors.Validationf("%s_successes must be a non-negative integer, got %d", name, p.Successes)
	}
	if p.Successes > p.Total {
		return errors.Validationf("%s_successes (%d) cannot exceed %s_total (%d)", name, p.Successes, name, p.Total)
	}
	return nil
}

func validateConfidenceLevel(cl float64) error {
	if !isFinite(cl) || cl <= 0 || cl >= 1 {
		return errors.Validationf("confidence_level must be between 0 and 1, got %v", cl)
	}
	return nil
}

func validateRate(rate float64, name string) error {
	if !isFinite(rate) {
		return errors.Validationf("%s must be a finite number, got %v", name, rate)
	}
	if rate < 0 || rate > 1 {
		return errors.Validationf("%s must be between 0 and 1, got %v", name, rate)
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
