package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sievedata/sieve/pkg/metrics"
)

const (
	previewMaxRows  = 50
	previewMaxChars = 4000
)

// narrate asks the LLM to summarize the consolidated result relative to
// the original query. Unlike the earlier stages there is no fallback: a
// narration failure fails the whole query, because an unverified summary
// is worse than none.
func (p *Processor) narrate(ctx context.Context, r *run, query string, result ConsolidatedResult) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("narrate").Observe(time.Since(start).Seconds())
	}()

	preview := previewResult(result)
	userPrompt := fmt.Sprintf("Question: %s\n\nResults:\n%s", query, preview)

	response, err := p.cfg.LLM.Complete(ctx, p.cfg.Prompts.Narrate, userPrompt)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues("narrate", "error").Inc()
		return "", fmt.Errorf("LLM completion failed: %w", err)
	}
	metrics.LLMCallsTotal.WithLabelValues("narrate", "ok").Inc()

	answer := strings.TrimSpace(response)
	if answer == "" {
		return "", fmt.Errorf("empty narration")
	}

	r.step("Narration", truncateString(answer, 200))
	return answer, nil
}

// previewResult serializes a consolidated result to a capped textual
// preview for the narration prompt.
func previewResult(result ConsolidatedResult) string {
	switch {
	case result.Frame != nil:
		if result.Frame.Len() == 0 {
			return "(no rows)"
		}
		return result.Frame.Render(previewMaxRows, previewMaxChars)
	case result.List != nil:
		var sb strings.Builder
		budget := previewMaxChars / len(result.List)
		if budget < 200 {
			budget = 200
		}
		for i, v := range result.List {
			fmt.Fprintf(&sb, "Result %d:\n", i+1)
			if v.IsTabular() {
				sb.WriteString(v.Frame.JSONPreview(budget))
			} else {
				sb.WriteString(truncateString(fmt.Sprintf("%v", v.Scalar), budget))
			}
			sb.WriteString("\n")
		}
		return truncateString(sb.String(), previewMaxChars)
	default:
		return truncateString(fmt.Sprintf("%v", result.Scalar), previewMaxChars)
	}
}
