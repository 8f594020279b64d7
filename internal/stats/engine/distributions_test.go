package engine

import (
	"math"
	"testing"
)

func TestTTestPValue(t *testing.T) {
	d := NewDistributions()

	if p := d.TTestPValue(0, 30); math.Abs(p-1.0) > 1e-9 {
		t.Errorf("t=0 should give p=1, got %v", p)
	}
	if p := d.TTestPValue(10, 50); p > 0.001 {
		t.Errorf("t=10 at df=50 should be tiny, got %v", p)
	}
	// Sign of t does not matter for a two-tailed test.
	if a, b := d.TTestPValue(2.5, 40), d.TTestPValue(-2.5, 40); math.Abs(a-b) > 1e-12 {
		t.Errorf("p-value should be sign-invariant: %v vs %v", a, b)
	}
	// Degenerate df and non-finite t fall back to p=1.
	if p := d.TTestPValue(2.0, 0); p != 1.0 {
		t.Errorf("df<=0 should give p=1, got %v", p)
	}
	if p := d.TTestPValue(math.NaN(), 30); p != 1.0 {
		t.Errorf("NaN t should give p=1, got %v", p)
	}
}

func TestTTestPValue_NormalAgreementAtHighDF(t *testing.T) {
	d := NewDistributions()

	for _, z := range []float64{0.5, 1.0, 1.96, 2.5} {
		tp := d.TTestPValue(z, 200)
		zp := d.ZTestPValue(z)
		if math.Abs(tp-zp)/zp > 0.05 {
			t.Errorf("t and z p-values should agree at high df: t=%v z=%v at stat %v", tp, zp, z)
		}
	}
}

func TestZTestPValue(t *testing.T) {
	d := NewDistributions()

	// Two-tailed p at z=1.96 is 0.05.
	if p := d.ZTestPValue(1.96); math.Abs(p-0.05) > 0.001 {
		t.Errorf("z=1.96 should give p~0.05, got %v", p)
	}
	if p := d.ZTestPValue(0); math.Abs(p-1.0) > 1e-9 {
		t.Errorf("z=0 should give p=1, got %v", p)
	}
	if p := d.ZTestPValue(math.Inf(1)); p != 1.0 {
		t.Errorf("non-finite z should give p=1, got %v", p)
	}
}

func TestZCritical(t *testing.T) {
	d := NewDistributions()

	if z := d.ZCritical(0.95); math.Abs(z-1.95996) > 0.001 {
		t.Errorf("z critical at 95%%: got %v, want ~1.96", z)
	}
	if z := d.ZCritical(0.99); math.Abs(z-2.57583) > 0.001 {
		t.Errorf("z critical at 99%%: got %v, want ~2.576", z)
	}
}

func TestTCritical(t *testing.T) {
	d := NewDistributions()

	if c := d.TCritical(0.95, 9); math.Abs(c-2.2622) > 0.005 {
		t.Errorf("t critical at 95%% df=9: got %v, want ~2.262", c)
	}
	// Non-positive df falls back to the normal critical value.
	if c := d.TCritical(0.95, 0); math.Abs(c-d.ZCritical(0.95)) > 1e-12 {
		t.Errorf("df=0 should fall back to z critical, got %v", c)
	}
}

func TestCohenD(t *testing.T) {
	d := NewDistributions()

	// Equal stds of 10 and a 10-point gap: d = 1.0 exactly.
	if got := d.CohenD(100, 10, 50, 90, 10, 50); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected d=1.0, got %v", got)
	}
	// Always absolute.
	if got := d.CohenD(90, 10, 50, 100, 10, 50); got < 0 {
		t.Errorf("effect size must be non-negative, got %v", got)
	}
	// Zero pooled variance sanitizes to zero.
	if got := d.CohenD(100, 0, 50, 90, 0, 50); got != 0 {
		t.Errorf("zero pooled std should give d=0, got %v", got)
	}
	// Too few observations to pool.
	if got := d.CohenD(100, 10, 1, 90, 10, 1); got != 0 {
		t.Errorf("n1+n2<=2 should give d=0, got %v", got)
	}
}

func TestCohenH(t *testing.T) {
	d := NewDistributions()

	if got := d.CohenH(0.5, 0.5); got != 0 {
		t.Errorf("equal proportions should give h=0, got %v", got)
	}
	// Symmetric in its arguments.
	if a, b := d.CohenH(0.15, 0.10), d.CohenH(0.10, 0.15); math.Abs(a-b) > 1e-12 {
		t.Errorf("h should be symmetric: %v vs %v", a, b)
	}
	// Known value: h(0.15, 0.10) = |2 asin(sqrt(.15)) - 2 asin(sqrt(.10))|.
	if got := d.CohenH(0.15, 0.10); math.Abs(got-0.1519) > 0.001 {
		t.Errorf("h(0.15, 0.10): got %v, want ~0.1519", got)
	}
	// Floating-point overshoot outside [0,1] is clamped, not propagated.
	if got := d.CohenH(1.0000001, 0.5); math.IsNaN(got) {
		t.Errorf("overshoot above 1 should be clamped, got NaN")
	}
	if got := d.CohenH(-0.0000001, 0.5); math.IsNaN(got) {
		t.Errorf("overshoot below 0 should be clamped, got NaN")
	}
}

func TestPower(t *testing.T) {
	d := NewDistributions()

	if got := d.Power(0, 1000, 0.05); got != 0 {
		t.Errorf("zero effect has zero power, got %v", got)
	}
	if got := d.Power(0.5, 0, 0.05); got != 0 {
		t.Errorf("zero n has zero power, got %v", got)
	}

	// Power grows with sample size at fixed effect.
	small := d.Power(0.2, 50, 0.05)
	large := d.Power(0.2, 500, 0.05)
	if small >= large {
		t.Errorf("power should grow with n: n=50 %v vs n=500 %v", small, large)
	}

	// And stays within [0, 1] even for huge effects.
	if got := d.Power(10, 100000, 0.05); got < 0 || got > 1 {
		t.Errorf("power out of [0,1]: %v", got)
	}
}

func TestPowerSampleSizeRoundTrip(t *testing.T) {
	d := NewDistributions()

	// The size recommended for 80% power should actually deliver at least
	// roughly 80% power when plugged back into the power approximation.
	effect := 0.2
	n := d.SampleSizePerGroup(effect, 0.80, 0.05)
	power := d.Power(effect, n, 0.05)
	if power < 0.79 {
		t.Errorf("recommended n=%d gives power %v, want >= ~0.80", n, power)
	}
}

func TestSampleSizePerGroup(t *testing.T) {
	d := NewDistributions()

	if got := d.SampleSizePerGroup(0, 0.80, 0.05); got != InfeasibleSampleSize {
		t.Errorf("zero effect should give the sentinel, got %d", got)
	}
	if got := d.SampleSizePerGroup(5.0, 0.80, 0.05); got != MinSampleSizePerGroup {
		t.Errorf("huge effect should hit the floor, got %d", got)
	}

	// Classic benchmark: effect 0.2 at 80% power and alpha 0.05 needs ~393
	// per group.
	got := d.SampleSizePerGroup(0.2, 0.80, 0.05)
	if got < 390 || got > 396 {
		t.Errorf("effect 0.2: got %d, want ~393", got)
	}

	// Smaller effects need more samples.
	if a, b := d.SampleSizePerGroup(0.1, 0.80, 0.05), d.SampleSizePerGroup(0.2, 0.80, 0.05); a <= b {
		t.Errorf("smaller effect should need more samples: %d vs %d", a, b)
	}
}
