package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sievedata/sieve/pkg/frame"
	"github.com/sievedata/sieve/pkg/metrics"
	"github.com/sievedata/sieve/pkg/store"
)

// executePlan walks the plan strictly in sequence order and dispatches
// each step to its executor. A failed step never aborts the plan; the
// executor records the failure and moves on, so partial answers survive.
func (p *Processor) executePlan(ctx context.Context, r *run, plan []ExecutionStep) []StepResult {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("execute").Observe(time.Since(start).Seconds())
	}()

	results := make([]StepResult, 0, len(plan))
	for _, step := range plan {
		res := StepResult{
			Seq:       step.Seq,
			SubtaskID: step.SubtaskID,
			Modality:  step.Modality,
			State:     StepRunning,
		}

		var value Value
		var err error
		switch step.Modality {
		case ModalitySQL:
			value, err = p.executeSQLStep(ctx, step)
		case ModalitySnippet:
			value, err = p.executeSnippetStep(ctx, step)
		default:
			err = fmt.Errorf("unsupported modality %q", step.Modality)
		}

		if err != nil {
			res.State = StepFailed
			res.Err = err.Error()
			metrics.StepsTotal.WithLabelValues(string(step.Modality), "error").Inc()
			r.step(fmt.Sprintf("Step %d Execution", step.Seq), "failed: "+err.Error())
		} else {
			res.State = StepSucceeded
			res.Value = value
			metrics.StepsTotal.WithLabelValues(string(step.Modality), "ok").Inc()
			r.step(fmt.Sprintf("Step %d Execution", step.Seq), describeValue(value))
		}
		results = append(results, res)
	}
	return results
}

// executeSQLStep runs the step's SQL against the store. Errors are tagged
// with their diagnostic tier; every tier yields the same failed outcome.
func (p *Processor) executeSQLStep(ctx context.Context, step ExecutionStep) (Value, error) {
	qr, err := p.cfg.Store.Query(ctx, step.Payload)
	if err != nil {
		return Value{}, fmt.Errorf("sql error (%s): %w", store.ClassifyError(err), err)
	}
	return Value{Frame: frame.FromRows(qr.Columns, qr.Rows)}, nil
}

// executeSnippetStep loads the default frame and runs the step's transform
// program over it.
func (p *Processor) executeSnippetStep(ctx context.Context, step ExecutionStep) (Value, error) {
	f, err := p.cfg.Store.LoadFrame(ctx, "")
	if err != nil {
		return Value{}, fmt.Errorf("loading frame: %w", err)
	}
	prog, err := frame.ParseProgram(step.Payload)
	if err != nil {
		return Value{}, fmt.Errorf("parsing program: %w", err)
	}
	out, err := prog.Run(f)
	if err != nil {
		return Value{}, fmt.Errorf("running program: %w", err)
	}
	if of, ok := out.(*frame.Frame); ok {
		return Value{Frame: of}, nil
	}
	return Value{Scalar: out}, nil
}

func describeValue(v Value) string {
	if v.IsTabular() {
		return fmt.Sprintf("succeeded with %d rows", v.Frame.Len())
	}
	return "succeeded with scalar: " + truncateString(fmt.Sprintf("%v", v.Scalar), 100)
}
