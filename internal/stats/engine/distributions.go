package engine

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides unified access to the distribution math the engine
// needs. All CDF/quantile work goes through gonum so every operation shares
// one authoritative numerical path.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// TTestPValue computes the two-tailed p-value for a t-statistic using the
// Student's t survival function. For df > 30 this agrees with the normal
// approximation to well within 1% relative tolerance.
func (d *Distributions) TTestPValue(tStatistic, degreesOfFreedom float64) float64 {
	if degreesOfFreedom <= 0 || !isFinite(tStatistic) {
		return 1.0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: degreesOfFreedom}
	p := 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
	return clamp01(p)
}

// ZTestPValue computes the two-tailed p-value for a z-statistic.
func (d *Distributions) ZTestPValue(zStatistic float64) float64 {
	if !isFinite(zStatistic) {
		return 1.0
	}
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(zStatistic)))
	return clamp01(p)
}

// NormalCDF computes the cumulative distribution function of the standard normal
func (d *Distributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes the standard normal quantile (inverse CDF)
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// ZCritical returns the two-tailed normal critical value for a confidence level.
func (d *Distributions) ZCritical(confidenceLevel float64) float64 {
	alpha := 1 - confidenceLevel
	return math.Abs(distuv.UnitNormal.Quantile(alpha / 2))
}

// TCritical returns the two-tailed Student-t critical value at df degrees of freedom.
func (d *Distributions) TCritical(confidenceLevel float64, df int) float64 {
	if df <= 0 {
		return d.ZCritical(confidenceLevel)
	}
	alpha := 1 - confidenceLevel
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return math.Abs(tDist.Quantile(alpha / 2))
}

// CohenD computes the absolute Cohen's d for two summarized samples using the
// pooled standard deviation. Zero pooled variance yields zero, not an error.
func (d *Distributions) CohenD(mean1, std1 float64, n1 int, mean2, std2 float64, n2 int) float64 {
	if n1 <= 0 || n2 <= 0 || n1+n2 <= 2 {
		return 0
	}

	pooledStd := math.Sqrt(((float64(n1-1) * std1 * std1) + (float64(n2-1) * std2 * std2)) / float64(n1+n2-2))
	if pooledStd == 0 {
		return 0
	}

	effect := math.Abs(mean1-mean2) / pooledStd
	if !isFinite(effect) {
		return 0
	}
	return effect
}

// CohenH computes the absolute Cohen's h for two proportions. Inputs are
// clamped to [0, 1] first to absorb floating-point overshoot; a non-finite
// result sanitizes to zero.
func (d *Distributions) CohenH(p1, p2 float64) float64 {
	p1 = math.Max(0, math.Min(1, p1))
	p2 = math.Max(0, math.Min(1, p2))

	phi1 := 2 * math.Asin(math.Sqrt(p1))
	phi2 := 2 * math.Asin(math.Sqrt(p2))

	h := math.Abs(phi1 - phi2)
	if !isFinite(h) {
		return 0
	}
	return h
}

// Power approximates the power of a two-sample, two-tailed test at the given
// standardized effect size, per-group sample size and alpha, using the
// non-central normal approximation ncp = effect * sqrt(n/2).
func (d *Distributions) Power(effectSize float64, n int, alpha float64) float64 {
	if effectSize == 0 || n <= 0 {
		return 0
	}

	ncp := effectSize * math.Sqrt(float64(n)/2)
	zAlpha := math.Abs(distuv.UnitNormal.Quantile(alpha / 2))

	power := 1 - distuv.UnitNormal.CDF(zAlpha-ncp) + distuv.UnitNormal.CDF(-zAlpha-ncp)
	return clamp01(power)
}

// SampleSizePerGroup solves the standard two-sample design for the per-group
// size that reaches the requested power: n = 2*((z_a/2 + z_b)/effect)^2.
// A zero effect is undetectable and returns the infeasibility sentinel; any
// feasible answer is floored at the minimum per-group size.
func (d *Distributions) SampleSizePerGroup(effectSize, power, alpha float64) int {
	if effectSize == 0 {
		return InfeasibleSampleSize
	}

	zAlpha := math.Abs(distuv.UnitNormal.Quantile(alpha / 2))
	zBeta := distuv.UnitNormal.Quantile(power)

	n := 2 * math.Pow((zAlpha+zBeta)/effectSize, 2)
	if !isFinite(n) {
		return InfeasibleSampleSize
	}

	needed := int(math.Ceil(n))
	if needed < MinSampleSizePerGroup {
		return MinSampleSizePerGroup
	}
	return needed
}

func clamp01(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
