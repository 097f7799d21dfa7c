package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sievedata/sieve/pkg/frame"
	"github.com/sievedata/sieve/pkg/metrics"
)

// generateSnippet produces a JSON transform program for a natural-language
// fragment. The program is validated against the allow-listed operation
// set before it is accepted; an invalid program is a generation failure
// and propagates, failing the plan build.
func (p *Processor) generateSnippet(ctx context.Context, r *run, fragment string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("generate_snippet").Observe(time.Since(start).Seconds())
	}()

	f, err := p.cfg.Store.LoadFrame(ctx, "")
	if err != nil {
		return "", fmt.Errorf("loading frame for snippet context: %w", err)
	}

	userPrompt := fmt.Sprintf("Frame columns: %s\nRow count: %d\n\nRequest: %s",
		strings.Join(f.Columns, ", "), f.Len(), fragment)

	response, err := p.cfg.LLM.Complete(ctx, p.cfg.Prompts.Snippet, userPrompt)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues("generate_snippet", "error").Inc()
		return "", fmt.Errorf("LLM completion failed: %w", err)
	}
	metrics.LLMCallsTotal.WithLabelValues("generate_snippet", "ok").Inc()

	src, err := extractProgram(response)
	if err != nil {
		return "", err
	}

	r.step("Transform Generation", truncateString(src, 200))
	return src, nil
}

// extractProgram locates a valid transform program in an LLM response.
// Programs come in two accepted forms, an object with an "ops" array or a
// bare operation array, and may be wrapped in fences or prose; the first
// candidate that parses wins.
func extractProgram(response string) (string, error) {
	src := stripFences(response)

	candidates := []string{src}
	if obj := extractJSON(src); obj != "" {
		candidates = append(candidates, obj)
	}
	if arr := extractJSONArray(src); arr != "" {
		candidates = append(candidates, arr)
	}

	var parseErr error
	for _, c := range candidates {
		if _, err := frame.ParseProgram(c); err == nil {
			return c, nil
		} else if parseErr == nil {
			parseErr = err
		}
	}
	return "", fmt.Errorf("generated program is invalid: %w", parseErr)
}
