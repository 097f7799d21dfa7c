package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sievedata/sieve/pkg/metrics"
	"github.com/sievedata/sieve/pkg/store"
)

// analyzeJoins asks the LLM which tables are relevant to the query and how
// to join them. Best-effort: on any failure it falls back to the heuristic
// same-name, same-type join-key detector. The returned analysis records
// which path produced it.
func (p *Processor) analyzeJoins(ctx context.Context, query string, tables []string) *JoinAnalysis {
	schema, err := p.schemaContext(ctx, tables, nil)
	if err != nil {
		return p.heuristicJoins(ctx, tables)
	}
	userPrompt := fmt.Sprintf("Schema:\n%s\nQuery: %s", schema, query)

	response, err := p.cfg.LLM.Complete(ctx, p.cfg.Prompts.Joins, userPrompt)
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues("joins", "error").Inc()
		return p.heuristicJoins(ctx, tables)
	}
	metrics.LLMCallsTotal.WithLabelValues("joins", "ok").Inc()

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return p.heuristicJoins(ctx, tables)
	}

	var raw struct {
		RelevantTables []string `json:"relevant_tables"`
		JoinRequired   bool     `json:"join_required"`
		Guidance       string   `json:"guidance"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return p.heuristicJoins(ctx, tables)
	}

	// Keep only tables that actually exist; the model occasionally invents
	// plausible names.
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t] = true
	}
	var relevant []string
	for _, t := range raw.RelevantTables {
		if known[t] {
			relevant = append(relevant, t)
		}
	}

	return &JoinAnalysis{
		Source:       "llm",
		Tables:       relevant,
		JoinRequired: raw.JoinRequired,
		Guidance:     strings.TrimSpace(raw.Guidance),
	}
}

// heuristicJoins builds a join analysis from same-named, same-typed
// columns across table pairs.
func (p *Processor) heuristicJoins(ctx context.Context, tables []string) *JoinAnalysis {
	candidates, err := p.heuristicJoinKeys(ctx, tables)
	a := &JoinAnalysis{Source: "heuristic", Tables: tables}
	if err != nil || len(candidates) == 0 {
		return a
	}
	a.JoinRequired = true
	a.Guidance = "Candidate join keys: " + strings.Join(candidates, "; ")
	return a
}

// heuristicJoinKeys flags same-named, same-typed columns across table
// pairs as candidate join keys, in "a.col = b.col" form.
func (p *Processor) heuristicJoinKeys(ctx context.Context, tables []string) ([]string, error) {
	schemas := make(map[string][]store.Column, len(tables))
	for _, t := range tables {
		cols, err := p.cfg.Store.TableSchema(ctx, t)
		if err != nil {
			return nil, err
		}
		schemas[t] = cols
	}

	var candidates []string
	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			a, b := tables[i], tables[j]
			types := make(map[string]string, len(schemas[b]))
			for _, c := range schemas[b] {
				types[c.Name] = strings.ToUpper(c.Type)
			}
			for _, c := range schemas[a] {
				if typ, ok := types[c.Name]; ok && typ == strings.ToUpper(c.Type) {
					candidates = append(candidates, fmt.Sprintf("%s.%s = %s.%s", a, c.Name, b, c.Name))
				}
			}
		}
	}
	return candidates, nil
}
