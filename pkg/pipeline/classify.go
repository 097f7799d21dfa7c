package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sievedata/sieve/pkg/metrics"
)

// classify asks the LLM to label the query's complexity and modality. One
// LLM call, no retries; any failure falls back to {simple, sql} so the
// pipeline degrades to a single SQL pass instead of erroring.
func (p *Processor) classify(ctx context.Context, query string, tables []string) Assessment {
	fallback := Assessment{Complexity: ComplexitySimple, Modality: ModalitySQL}

	userPrompt := fmt.Sprintf("Available tables: %s\n\nQuery to classify: %s",
		strings.Join(tables, ", "), query)
	if hint := p.joinHint(ctx, tables); hint != "" {
		userPrompt += "\n\nJoin hint: " + hint
	}

	start := time.Now()
	response, err := p.cfg.LLM.Complete(ctx, p.cfg.Prompts.Classify, userPrompt)
	metrics.StageDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues("classify", "error").Inc()
		p.log.Warn("classify LLM call failed, using fallback", "error", err)
		return fallback
	}
	metrics.LLMCallsTotal.WithLabelValues("classify", "ok").Inc()

	assessment, err := parseClassifyResponse(response)
	if err != nil {
		p.log.Warn("classify parse failed, using fallback",
			"error", err,
			"responsePreview", truncateString(response, 200))
		return fallback
	}
	return assessment
}

// joinHint produces a one-line heuristic hint about likely join keys for
// the classifier prompt. Best-effort: any failure yields an empty hint.
func (p *Processor) joinHint(ctx context.Context, tables []string) string {
	if len(tables) < 2 {
		return ""
	}
	candidates, err := p.heuristicJoinKeys(ctx, tables)
	if err != nil || len(candidates) == 0 {
		return ""
	}
	return "possible join keys: " + strings.Join(candidates, "; ")
}

func parseClassifyResponse(response string) (Assessment, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return Assessment{}, fmt.Errorf("no JSON found in response")
	}

	var raw struct {
		Complexity string `json:"complexity"`
		Modality   string `json:"modality"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return Assessment{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var a Assessment
	switch Complexity(strings.ToLower(raw.Complexity)) {
	case ComplexitySimple:
		a.Complexity = ComplexitySimple
	case ComplexityComplex:
		a.Complexity = ComplexityComplex
	default:
		return Assessment{}, fmt.Errorf("invalid complexity: %q", raw.Complexity)
	}

	switch Modality(strings.ToLower(raw.Modality)) {
	case ModalitySQL:
		a.Modality = ModalitySQL
	case ModalitySnippet:
		a.Modality = ModalitySnippet
	case ModalityHybrid:
		a.Modality = ModalityHybrid
	default:
		return Assessment{}, fmt.Errorf("invalid modality: %q", raw.Modality)
	}

	return a, nil
}
