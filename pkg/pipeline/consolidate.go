package pipeline

import "github.com/sievedata/sieve/pkg/frame"

// consolidate merges per-step outputs into one logical result. The policy
// is deliberately permissive and never fails:
//
//  1. only succeeded steps count, in sequence order
//  2. zero succeeded: empty tabular result
//  3. exactly one succeeded: that value, unwrapped
//  4. several succeeded, all tabular: row-wise concatenation with schema
//     union, missing cells nil
//  5. anything else: the ordered list of successful values, uninterpreted
//
// Failed steps are excluded here but remain visible in the reasoning trail.
func consolidate(results []StepResult) ConsolidatedResult {
	var ok []Value
	for _, r := range results {
		if r.State == StepSucceeded {
			ok = append(ok, r.Value)
		}
	}

	switch len(ok) {
	case 0:
		return ConsolidatedResult{Frame: frame.Empty()}
	case 1:
		if ok[0].IsTabular() {
			return ConsolidatedResult{Frame: ok[0].Frame}
		}
		return ConsolidatedResult{Scalar: ok[0].Scalar}
	}

	allTabular := true
	for _, v := range ok {
		if !v.IsTabular() {
			allTabular = false
			break
		}
	}
	if allTabular {
		frames := make([]*frame.Frame, len(ok))
		for i, v := range ok {
			frames[i] = v.Frame
		}
		if merged, err := frame.Concat(frames); err == nil {
			return ConsolidatedResult{Frame: merged}
		}
	}

	return ConsolidatedResult{List: ok}
}
