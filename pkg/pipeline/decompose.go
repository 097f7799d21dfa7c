package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sievedata/sieve/pkg/metrics"
)

// decomposeResponse is the expected JSON response from the decompose step.
type decomposeResponse struct {
	Subtasks []struct {
		ID            string   `json:"id"`
		Description   string   `json:"description"`
		OperationType string   `json:"operation_type"`
		Dependencies  []string `json:"dependencies"`
	} `json:"subtasks"`
}

// decompose breaks a complex query into dependent subtasks. One LLM call;
// any failure falls back to a single SQL subtask wrapping the whole query,
// so the planner always returns at least one actionable subtask.
func (p *Processor) decompose(ctx context.Context, r *run, query string) []Subtask {
	fallback := []Subtask{{
		ID:          "task_1",
		Description: query,
		Modality:    ModalitySQL,
	}}

	systemPrompt := p.cfg.Prompts.Decompose
	if p.cfg.Dict != nil {
		systemPrompt += "\n\n## Dataset\n\n" + p.cfg.Dict.Summary()
	}
	userPrompt := fmt.Sprintf("Query to decompose: %s\n\nRespond with JSON only.", query)

	start := time.Now()
	response, err := p.cfg.LLM.Complete(ctx, systemPrompt, userPrompt)
	metrics.StageDuration.WithLabelValues("decompose").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues("decompose", "error").Inc()
		p.log.Warn("decompose LLM call failed, using single-subtask fallback", "error", err)
		r.step("Query Decomposition", "decomposition unavailable, treating query as one SQL task")
		return fallback
	}
	metrics.LLMCallsTotal.WithLabelValues("decompose", "ok").Inc()

	subtasks, err := parseDecomposeResponse(response)
	if err != nil || len(subtasks) == 0 {
		p.log.Warn("decompose parse failed, using single-subtask fallback",
			"error", err,
			"responsePreview", truncateString(response, 200))
		r.step("Query Decomposition", "decomposition unavailable, treating query as one SQL task")
		return fallback
	}

	var names []string
	for _, st := range subtasks {
		names = append(names, st.ID)
	}
	r.step("Query Decomposition",
		fmt.Sprintf("%d subtasks: %s", len(subtasks), strings.Join(names, ", ")))
	return subtasks
}

// parseDecomposeResponse extracts subtasks from the LLM response.
func parseDecomposeResponse(response string) ([]Subtask, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var parsed decomposeResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	seen := map[string]bool{}
	result := make([]Subtask, 0, len(parsed.Subtasks))
	for i, raw := range parsed.Subtasks {
		if raw.Description == "" {
			continue
		}
		id := raw.ID
		if id == "" {
			id = fmt.Sprintf("task_%d", i+1)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate subtask id: %s", id)
		}
		seen[id] = true
		result = append(result, Subtask{
			ID:          id,
			Description: raw.Description,
			Modality:    subtaskModality(raw.OperationType),
			DependsOn:   raw.Dependencies,
		})
	}

	return result, nil
}

// subtaskModality maps the LLM's operation_type to a step modality.
// Unknown labels degrade to SQL, the modality most likely to succeed.
func subtaskModality(operationType string) Modality {
	switch strings.ToLower(strings.TrimSpace(operationType)) {
	case "snippet", "transform", "python", "code":
		return ModalitySnippet
	default:
		return ModalitySQL
	}
}
