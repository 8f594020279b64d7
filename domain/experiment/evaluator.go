package experiment

import "math"

// Evaluate decides pass/fail for one metric comparison under compounding
// growth semantics: the success bar is the control's absolute value scaled by
// the threshold, so each win has to compound on the previous control rather
// than clear a fixed baseline.
//
// Pair selection runs in priority order: an explicit treatment/control pair
// wins, then a baseline-relative comparison (signalled by ChangePercent),
// otherwise there is no usable comparison and the result is false. When the
// chosen control value is zero or missing the decision degrades to a simple
// change-percent threshold, which is only defined for increase/decrease.
//
// Evaluate is pure: the decision trail is returned, never written into rec.
func Evaluate(rec MetricComparison, criteria SuccessCriteria) Decision {
	var treatment, control float64
	var path DecisionPath

	switch {
	case rec.TreatmentValue != nil && rec.ControlValue != nil:
		treatment = *rec.TreatmentValue
		control = *rec.ControlValue
		path = PathTreatmentVsControl
	case rec.ChangePercent != nil:
		treatment = rec.ExperimentValue
		if rec.BaselineValue != nil {
			control = *rec.BaselineValue
		}
		path = PathBaseline
	default:
		return Decision{Success: false, Path: PathNoComparison}
	}

	if control == 0 {
		return evaluateFallback(rec, criteria, path)
	}

	threshold := criteria.Threshold

	switch criteria.Operator {
	case OperatorIncrease:
		target := control * (1 + threshold/100)
		success := treatment >= target
		rounded := round2(target)
		return Decision{Success: success, CompoundTarget: &rounded, Path: path}

	case OperatorDecrease:
		target := control * (1 - threshold/100)
		success := treatment <= target
		rounded := round2(target)
		return Decision{Success: success, CompoundTarget: &rounded, Path: path}

	case OperatorEquals:
		target := control * (1 + threshold/100)
		tolerance := control * 0.01
		return Decision{Success: math.Abs(treatment-target) < tolerance, Path: path}

	case OperatorGreaterThan:
		return Decision{Success: treatment > control*(1+threshold/100), Path: path}

	case OperatorLessThan:
		// Less-than intentionally shares the increase-style target with
		// greater-than; it does not mirror the decrease formula.
		return Decision{Success: treatment < control*(1+threshold/100), Path: path}
	}

	return Decision{Success: false, Path: path}
}

// evaluateFallback applies the change-percent rule used when no nonzero
// control value exists. Operators other than increase/decrease have no
// defined fallback and fail.
func evaluateFallback(rec MetricComparison, criteria SuccessCriteria, path DecisionPath) Decision {
	var changePercent *float64
	if path == PathTreatmentVsControl {
		if rec.TreatmentVsControl != nil {
			changePercent = &rec.TreatmentVsControl.ChangePercent
		}
	} else {
		changePercent = rec.ChangePercent
	}

	if changePercent == nil {
		return Decision{Success: false, Path: PathNoComparison}
	}

	switch criteria.Operator {
	case OperatorIncrease:
		return Decision{Success: *changePercent >= criteria.Threshold, Path: PathPercentFallback}
	case OperatorDecrease:
		return Decision{Success: *changePercent <= -criteria.Threshold, Path: PathPercentFallback}
	default:
		return Decision{Success: false, Path: PathPercentFallback}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
