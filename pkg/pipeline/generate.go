package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sievedata/sieve/pkg/metrics"
)

// generateSQL produces one SQLite statement for a natural-language
// fragment. When more than one table exists, a join-relevance analysis
// runs first and its guidance is embedded in the prompt; relevant tables
// are listed before the rest of the schema. No syntax validation happens
// here; invalid SQL surfaces at execution time.
func (p *Processor) generateSQL(ctx context.Context, r *run, subtaskID, fragment string, tables []string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("generate_sql").Observe(time.Since(start).Seconds())
	}()

	var joins *JoinAnalysis
	if len(tables) > 1 {
		joins = p.analyzeJoins(ctx, fragment, tables)
		joins.SubtaskID = subtaskID
		r.res.Joins = append(r.res.Joins, *joins)
		r.step("Join Analysis",
			fmt.Sprintf("subtask=%s source=%s join_required=%t", subtaskID, joins.Source, joins.JoinRequired))
	}

	var relevant []string
	if joins != nil {
		relevant = joins.Tables
	}
	schema, err := p.schemaContext(ctx, tables, relevant)
	if err != nil {
		return "", fmt.Errorf("building schema context: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Request: ")
	sb.WriteString(fragment)
	sb.WriteString("\n\n")
	if p.cfg.Dict != nil {
		sb.WriteString("Field descriptions:\n")
		sb.WriteString(p.cfg.Dict.PromptContext())
		sb.WriteString("\n")
	}
	sb.WriteString("Schema:\n")
	sb.WriteString(schema)
	if joins != nil && joins.Guidance != "" {
		sb.WriteString("\nJoin guidance: ")
		sb.WriteString(joins.Guidance)
		sb.WriteString("\n")
	}

	response, err := p.cfg.LLM.Complete(ctx, p.cfg.Prompts.Generate, sb.String())
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues("generate_sql", "error").Inc()
		return "", fmt.Errorf("LLM completion failed: %w", err)
	}
	metrics.LLMCallsTotal.WithLabelValues("generate_sql", "ok").Inc()

	sql := cleanSQL(stripFences(response))
	if sql == "" {
		return "", fmt.Errorf("no SQL generated")
	}

	r.step("SQL Generation", truncateString(sql, 200))
	return sql, nil
}

// schemaContext renders a textual schema listing for prompts. Tables named
// in relevant are listed first, in the given order; the rest follow in
// catalog order.
func (p *Processor) schemaContext(ctx context.Context, tables, relevant []string) (string, error) {
	ordered := make([]string, 0, len(tables))
	seen := make(map[string]bool, len(tables))
	for _, t := range relevant {
		if !seen[t] {
			ordered = append(ordered, t)
			seen[t] = true
		}
	}
	for _, t := range tables {
		if !seen[t] {
			ordered = append(ordered, t)
			seen[t] = true
		}
	}

	var sb strings.Builder
	for _, t := range ordered {
		cols, err := p.cfg.Store.TableSchema(ctx, t)
		if err != nil {
			return "", fmt.Errorf("fetching schema for %s: %w", t, err)
		}
		sb.WriteString("Table ")
		sb.WriteString(t)
		sb.WriteString(":\n")
		for _, c := range cols {
			sb.WriteString("  ")
			sb.WriteString(c.Name)
			sb.WriteString(" ")
			sb.WriteString(c.Type)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// cleanSQL normalizes SQL by trimming whitespace and trailing semicolons.
func cleanSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
