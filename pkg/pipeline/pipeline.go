// Package pipeline implements an agentic natural-language query processor.
// A query is classified, optionally decomposed into dependent subtasks,
// turned into an ordered execution plan of SQL and transform steps, run
// best-effort against a SQLite store, consolidated into one result, and
// narrated back in natural language.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sievedata/sieve/pkg/events"
	"github.com/sievedata/sieve/pkg/metrics"
	"github.com/sievedata/sieve/pkg/store"
)

// Processor orchestrates query processing. It holds no per-query state;
// everything produced while processing lives in the Result, so one
// Processor can serve queries back to back (or concurrently, provided the
// configured Store tolerates it).
type Processor struct {
	cfg *Config
	log *slog.Logger
}

// New creates a new Processor.
func New(cfg *Config) (*Processor, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("prompts are required")
	}
	if cfg.Events == nil {
		cfg.Events = events.NopSink{}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Processor{cfg: cfg, log: log}, nil
}

// run is the per-query context. A fresh one is built at the top of
// ProcessQuery and threaded through every sub-call; nothing in it survives
// the call.
type run struct {
	res  *Result
	sink events.Sink
	log  *slog.Logger
}

// step appends a labeled entry to the reasoning trail and reports it to
// the activity sink.
func (r *run) step(label, detail string) {
	r.res.Reasoning = append(r.res.Reasoning, ReasoningStep{
		Number: len(r.res.Reasoning) + 1,
		Label:  label,
		Detail: detail,
	})
	r.sink.Emit(label, detail)
	r.log.Debug("reasoning step", "label", label, "detail", detail)
}

// ProcessQuery runs the full pipeline for one query. The returned Result
// is non-nil even on error and always carries the reasoning trail and any
// partial results accumulated before the failure.
func (p *Processor) ProcessQuery(ctx context.Context, query string) (*Result, error) {
	r := &run{
		res:  &Result{Query: query},
		sink: p.cfg.Events,
		log:  p.log,
	}
	start := time.Now()

	tables, err := p.cfg.Store.ListTables(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNoConnection) || errors.Is(err, store.ErrNoTables) {
			r.step("Database Check", err.Error())
		}
		metrics.QueriesTotal.WithLabelValues("unknown", "error").Inc()
		return r.res, fmt.Errorf("listing tables: %w", err)
	}

	assessment := p.classify(ctx, query, tables)
	r.res.Assessment = assessment
	r.step("Query Classification",
		fmt.Sprintf("complexity=%s modality=%s", assessment.Complexity, assessment.Modality))

	var subtasks []Subtask
	switch {
	case assessment.Complexity == ComplexitySimple && assessment.Modality != ModalityHybrid:
		// Simple path: one subtask wrapping the whole query.
		subtasks = []Subtask{{
			ID:          "task_1",
			Description: query,
			Modality:    assessment.Modality,
		}}
	default:
		// Complex queries, and hybrid queries regardless of complexity,
		// go through decomposition.
		subtasks = p.decompose(ctx, r, query)
	}
	r.res.Subtasks = subtasks

	plan, err := p.buildPlan(ctx, r, subtasks, tables)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(string(assessment.Complexity), "error").Inc()
		return r.res, fmt.Errorf("building execution plan: %w", err)
	}
	r.res.Plan = plan

	r.res.StepResults = p.executePlan(ctx, r, plan)
	r.res.Consolidated = consolidate(r.res.StepResults)
	r.step("Result Consolidation", describeConsolidated(r.res.Consolidated))

	answer, err := p.narrate(ctx, r, query, r.res.Consolidated)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues(string(assessment.Complexity), "error").Inc()
		return r.res, fmt.Errorf("narrating results: %w", err)
	}
	r.res.Answer = answer

	metrics.QueriesTotal.WithLabelValues(string(assessment.Complexity), "ok").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	p.log.Info("query processed",
		"complexity", assessment.Complexity,
		"steps", len(plan),
		"duration", time.Since(start))
	return r.res, nil
}

func describeConsolidated(c ConsolidatedResult) string {
	switch {
	case c.Frame != nil:
		return fmt.Sprintf("tabular result with %d rows", c.Frame.Len())
	case c.List != nil:
		return fmt.Sprintf("list of %d heterogeneous results", len(c.List))
	default:
		return fmt.Sprintf("scalar result: %s", truncateString(fmt.Sprintf("%v", c.Scalar), 100))
	}
}
