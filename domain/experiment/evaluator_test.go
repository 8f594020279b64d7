package experiment

import (
	"math"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func TestEvaluate_IncreaseCompoundTarget(t *testing.T) {
	criteria := SuccessCriteria{Metric: "views", Threshold: 5, Operator: OperatorIncrease}

	// control=100 at +5% sets the bar at 105.0.
	rec := MetricComparison{
		TreatmentValue: fptr(106),
		ControlValue:   fptr(100),
	}
	d := Evaluate(rec, criteria)
	if !d.Success {
		t.Error("106 vs target 105.0 should succeed")
	}
	if d.Path != PathTreatmentVsControl {
		t.Errorf("unexpected path: %s", d.Path)
	}
	if d.CompoundTarget == nil || *d.CompoundTarget != 105.0 {
		t.Errorf("expected compound target 105.0, got %v", d.CompoundTarget)
	}

	// Treatment exactly at the target passes (>=).
	rec.TreatmentValue = fptr(105)
	if d := Evaluate(rec, criteria); !d.Success {
		t.Error("treatment exactly at target should succeed")
	}

	rec.TreatmentValue = fptr(104)
	if d := Evaluate(rec, criteria); d.Success {
		t.Error("104 vs target 105.0 should fail")
	}
}

func TestEvaluate_DecreaseCompoundTarget(t *testing.T) {
	criteria := SuccessCriteria{Metric: "bounce_rate", Threshold: 10, Operator: OperatorDecrease}

	// control=200 at -10% sets the bar at 180.0.
	rec := MetricComparison{
		TreatmentValue: fptr(179),
		ControlValue:   fptr(200),
	}
	d := Evaluate(rec, criteria)
	if !d.Success {
		t.Error("179 vs target 180.0 should succeed")
	}
	if d.CompoundTarget == nil || *d.CompoundTarget != 180.0 {
		t.Errorf("expected compound target 180.0, got %v", d.CompoundTarget)
	}

	rec.TreatmentValue = fptr(181)
	if d := Evaluate(rec, criteria); d.Success {
		t.Error("181 vs target 180.0 should fail")
	}
}

func TestEvaluate_Equals(t *testing.T) {
	criteria := SuccessCriteria{Metric: "ctr", Threshold: 0, Operator: OperatorEquals}

	// Tolerance is 1% of the control value, strict inequality.
	rec := MetricComparison{
		TreatmentValue: fptr(100.5),
		ControlValue:   fptr(100),
	}
	if d := Evaluate(rec, criteria); !d.Success {
		t.Error("within 1% tolerance should succeed")
	}

	rec.TreatmentValue = fptr(101)
	if d := Evaluate(rec, criteria); d.Success {
		t.Error("exactly at the tolerance boundary should fail")
	}

	// Equals never reports a compound target.
	rec.TreatmentValue = fptr(100)
	if d := Evaluate(rec, criteria); d.CompoundTarget != nil {
		t.Errorf("equals should not set a compound target, got %v", *d.CompoundTarget)
	}
}

func TestEvaluate_GreaterAndLessThanShareTarget(t *testing.T) {
	// Both comparison operators test against control*(1+threshold/100);
	// less_than does not flip the sign the way decrease does.
	rec := MetricComparison{
		TreatmentValue: fptr(104),
		ControlValue:   fptr(100),
	}

	gt := SuccessCriteria{Metric: "views", Threshold: 5, Operator: OperatorGreaterThan}
	if d := Evaluate(rec, gt); d.Success {
		t.Error("greater_than: 104 is not above 105")
	}
	lt := SuccessCriteria{Metric: "views", Threshold: 5, Operator: OperatorLessThan}
	if d := Evaluate(rec, lt); !d.Success {
		t.Error("less_than: 104 is below 105, should succeed")
	}

	// Strict inequality on both: exactly at the target fails either way.
	rec.TreatmentValue = fptr(105)
	if d := Evaluate(rec, gt); d.Success {
		t.Error("greater_than at the exact target should fail")
	}
	if d := Evaluate(rec, lt); d.Success {
		t.Error("less_than at the exact target should fail")
	}

	// Neither sets a compound target.
	if d := Evaluate(rec, gt); d.CompoundTarget != nil {
		t.Error("greater_than should not set a compound target")
	}
}

func TestEvaluate_BaselinePath(t *testing.T) {
	criteria := SuccessCriteria{Metric: "views", Threshold: 5, Operator: OperatorIncrease}

	rec := MetricComparison{
		ExperimentValue: 110,
		BaselineValue:   fptr(100),
		Change:          fptr(10),
		ChangePercent:   fptr(10),
	}
	d := Evaluate(rec, criteria)
	if !d.Success {
		t.Error("110 vs baseline target 105.0 should succeed")
	}
	if d.Path != PathBaseline {
		t.Errorf("expected baseline path, got %s", d.Path)
	}
	if d.CompoundTarget == nil || *d.CompoundTarget != 105.0 {
		t.Errorf("expected compound target 105.0, got %v", d.CompoundTarget)
	}
}

func TestEvaluate_TreatmentControlTakesPrecedence(t *testing.T) {
	criteria := SuccessCriteria{Metric: "views", Threshold: 5, Operator: OperatorIncrease}

	// Both pairs present: treatment/control wins even though the baseline
	// comparison would fail.
	rec := MetricComparison{
		ExperimentValue: 100,
		BaselineValue:   fptr(100),
		ChangePercent:   fptr(0),
		TreatmentValue:  fptr(120),
		ControlValue:    fptr(100),
	}
	d := Evaluate(rec, criteria)
	if !d.Success || d.Path != PathTreatmentVsControl {
		t.Errorf("treatment/control pair should take precedence: %+v", d)
	}
}

func TestEvaluate_ZeroControlFallback(t *testing.T) {
	criteria := SuccessCriteria{Metric: "views", Threshold: 20, Operator: OperatorIncrease}

	// Zero control on the treatment/control path degrades to the
	// treatment-vs-control change percent.
	rec := MetricComparison{
		TreatmentValue:     fptr(30),
		ControlValue:       fptr(0),
		TreatmentVsControl: &RelativeChange{Change: 30, ChangePercent: 30},
	}
	d := Evaluate(rec, criteria)
	if !d.Success {
		t.Error("change percent 30 >= threshold 20 should succeed")
	}
	if d.Path != PathPercentFallback {
		t.Errorf("expected percent fallback path, got %s", d.Path)
	}
	if d.CompoundTarget != nil {
		t.Error("fallback decisions carry no compound target")
	}

	// Under the threshold fails.
	rec.TreatmentVsControl = &RelativeChange{Change: 10, ChangePercent: 10}
	if d := Evaluate(rec, criteria); d.Success {
		t.Error("change percent 10 < threshold 20 should fail")
	}

	// Decrease compares against the negated threshold.
	dec := SuccessCriteria{Metric: "bounce_rate", Threshold: 20, Operator: OperatorDecrease}
	rec.TreatmentVsControl = &RelativeChange{Change: -25, ChangePercent: -25}
	if d := Evaluate(rec, dec); !d.Success {
		t.Error("change percent -25 <= -20 should succeed")
	}
}

func TestEvaluate_ZeroControlFallbackUndefinedOperators(t *testing.T) {
	rec := MetricComparison{
		TreatmentValue:     fptr(30),
		ControlValue:       fptr(0),
		TreatmentVsControl: &RelativeChange{Change: 30, ChangePercent: 30},
	}

	for _, op := range []ComparisonOperator{OperatorEquals, OperatorGreaterThan, OperatorLessThan} {
		d := Evaluate(rec, SuccessCriteria{Metric: "views", Threshold: 5, Operator: op})
		if d.Success {
			t.Errorf("%s has no fallback rule and must fail", op)
		}
		if d.Path != PathPercentFallback {
			t.Errorf("%s: expected percent fallback path, got %s", op, d.Path)
		}
	}
}

func TestEvaluate_ZeroControlWithoutChangePercent(t *testing.T) {
	criteria := SuccessCriteria{Metric: "views", Threshold: 5, Operator: OperatorIncrease}

	// Zero control and no relative change anywhere: nothing to decide with.
	rec := MetricComparison{
		TreatmentValue: fptr(30),
		ControlValue:   fptr(0),
	}
	d := Evaluate(rec, criteria)
	if d.Success || d.Path != PathNoComparison {
		t.Errorf("expected no-comparison failure, got %+v", d)
	}
}

func TestEvaluate_NoComparison(t *testing.T) {
	criteria := SuccessCriteria{Metric: "views", Threshold: 5, Operator: OperatorIncrease}

	d := Evaluate(MetricComparison{ExperimentValue: 100}, criteria)
	if d.Success {
		t.Error("no comparable values should fail")
	}
	if d.Path != PathNoComparison {
		t.Errorf("expected no-comparison path, got %s", d.Path)
	}
}

func TestEvaluate_CompoundTargetRounding(t *testing.T) {
	criteria := SuccessCriteria{Metric: "views", Threshold: 3, Operator: OperatorIncrease}

	rec := MetricComparison{
		TreatmentValue: fptr(200),
		ControlValue:   fptr(33.333),
	}
	d := Evaluate(rec, criteria)
	if d.CompoundTarget == nil {
		t.Fatal("expected a compound target")
	}
	want := math.Round(33.333*1.03*100) / 100
	if *d.CompoundTarget != want {
		t.Errorf("target not rounded to cents: got %v, want %v", *d.CompoundTarget, want)
	}
}

func TestParseComparisonOperator(t *testing.T) {
	cases := map[string]ComparisonOperator{
		"increase":     OperatorIncrease,
		"decrease":     OperatorDecrease,
		"equals":       OperatorEquals,
		"greater_than": OperatorGreaterThan,
		"less_than":    OperatorLessThan,
	}
	for raw, want := range cases {
		got, err := ParseComparisonOperator(raw)
		if err != nil {
			t.Errorf("ParseComparisonOperator(%q): %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("ParseComparisonOperator(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseComparisonOperator("between"); err == nil {
		t.Error("unknown operator should error")
	}
}
