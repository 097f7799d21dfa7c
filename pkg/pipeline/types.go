package pipeline

import (
	"context"
	"log/slog"

	"github.com/sievedata/sieve/pkg/dict"
	"github.com/sievedata/sieve/pkg/events"
	"github.com/sievedata/sieve/pkg/frame"
	"github.com/sievedata/sieve/pkg/store"
)

// Config holds the configuration for the processor.
type Config struct {
	Logger  *slog.Logger
	LLM     LLMClient
	Store   Store
	Dict    *dict.Dictionary // optional; nil degrades prompts to schema-only context
	Events  events.Sink      // optional; nil disables activity reporting
	Prompts *Prompts
}

// LLMClient is the interface for interacting with an LLM.
type LLMClient interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Store is the relational backend the processor queries and introspects.
// *store.Store satisfies it.
type Store interface {
	ListTables(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, table string) ([]store.Column, error)
	Query(ctx context.Context, sqlText string) (store.QueryResult, error)
	LoadFrame(ctx context.Context, table string) (*frame.Frame, error)
}

// Complexity labels how a query should be processed.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// Modality labels what kind of execution a query or subtask needs.
// Hybrid is only valid at the query level; it is redirected to the complex
// path and never executed directly.
type Modality string

const (
	ModalitySQL     Modality = "sql"
	ModalitySnippet Modality = "snippet"
	ModalityHybrid  Modality = "hybrid"
)

// Assessment is the classifier's verdict for one query.
type Assessment struct {
	Complexity Complexity `json:"complexity"`
	Modality   Modality   `json:"modality"`
}

// Subtask is one unit of decomposition of a complex query.
type Subtask struct {
	ID          string
	Description string
	Modality    Modality
	DependsOn   []string
}

// ExecutionStep is one concrete executable step of a plan. Payload is SQL
// text for SQL steps and a JSON transform program for snippet steps.
type ExecutionStep struct {
	Seq       int // 1-based, dense
	SubtaskID string
	Modality  Modality
	Payload   string
}

// StepState is the lifecycle state of a step during execution.
type StepState string

const (
	StepPending   StepState = "pending"
	StepRunning   StepState = "running"
	StepSucceeded StepState = "succeeded"
	StepFailed    StepState = "failed"
)

// Value is the output of one successful step: a tabular frame for SQL steps
// and grouped aggregates, or a scalar for everything else. Exactly one side
// is set.
type Value struct {
	Frame  *frame.Frame
	Scalar any
}

// IsTabular reports whether the value carries rows.
func (v Value) IsTabular() bool { return v.Frame != nil }

// StepResult is the outcome of executing one step.
type StepResult struct {
	Seq       int
	SubtaskID string
	Modality  Modality
	State     StepState
	Value     Value
	Err       string // set when State is StepFailed
}

// ConsolidatedResult is the single logical result of a query. Exactly one
// of Frame, Scalar, or List is populated; an all-failed plan yields an
// empty Frame.
type ConsolidatedResult struct {
	Frame  *frame.Frame
	Scalar any
	List   []Value
}

// ReasoningStep is one labeled entry in the per-query reasoning trail.
type ReasoningStep struct {
	Number int
	Label  string
	Detail string
}

// JoinAnalysis describes which tables matter for one generated SQL step
// and how to join them. Source records which path produced it so callers
// can tell the LLM analysis apart from the heuristic fallback. SubtaskID
// ties the analysis to the step it informed.
type JoinAnalysis struct {
	SubtaskID    string
	Source       string // "llm" or "heuristic"
	Tables       []string
	JoinRequired bool
	Guidance     string
}

// Result is everything produced while processing one query. It is returned
// even when processing fails partway so the caller always sees the
// reasoning trail and any partial results.
type Result struct {
	Query        string
	Assessment   Assessment
	Subtasks     []Subtask
	Plan         []ExecutionStep
	StepResults  []StepResult
	Consolidated ConsolidatedResult
	Answer       string
	Joins        []JoinAnalysis // one per SQL step that ran join analysis
	Reasoning    []ReasoningStep
}
