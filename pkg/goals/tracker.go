// Package goals tracks top-level goals and their lifecycle around query
// processing: creation from templates, state transitions, per-goal
// reasoning steps, and subgoals.
package goals

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sievedata/sieve/pkg/events"
)

// State is the lifecycle state of a goal.
type State string

const (
	StateCreated   State = "created"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Template defines a goal kind and its required parameters.
type Template struct {
	Name        string
	Description string
	Parameters  []string
}

// ReasoningStep is one labeled entry in a goal's reasoning trail.
type ReasoningStep struct {
	Number    int
	Name      string
	Detail    string
	Timestamp time.Time
}

// Goal is one tracked unit of work.
type Goal struct {
	ID         uuid.UUID
	Template   string
	Title      string
	Parameters map[string]string
	State      State
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Subgoals   []uuid.UUID
	Parent     uuid.UUID
	Reasoning  []ReasoningStep
	Result     any
}

// Tracker stores goals in memory and reports transitions to an event sink.
type Tracker struct {
	mu        sync.Mutex
	goals     map[uuid.UUID]*Goal
	templates map[string]Template
	sink      events.Sink
}

// NewTracker builds a tracker with the built-in templates. A nil sink
// disables activity reporting.
func NewTracker(sink events.Sink) *Tracker {
	if sink == nil {
		sink = events.NopSink{}
	}
	t := &Tracker{
		goals:     map[uuid.UUID]*Goal{},
		templates: map[string]Template{},
		sink:      sink,
	}
	for _, tpl := range []Template{
		{Name: "process_query", Description: "Process a natural language query and return results", Parameters: []string{"query"}},
		{Name: "process_file", Description: "Process an uploaded file and create a database", Parameters: []string{"file_path"}},
		{Name: "generate_sample_queries", Description: "Generate sample queries based on the data dictionary", Parameters: []string{"data_dict_path"}},
	} {
		t.templates[tpl.Name] = tpl
	}
	return t
}

// Create instantiates a goal from a template. All template parameters must
// be supplied.
func (t *Tracker) Create(template string, params map[string]string) (uuid.UUID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tpl, ok := t.templates[template]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown goal template: %s", template)
	}
	for _, p := range tpl.Parameters {
		if _, ok := params[p]; !ok {
			return uuid.Nil, fmt.Errorf("missing required parameter: %s", p)
		}
	}

	now := time.Now()
	g := &Goal{
		ID:         uuid.New(),
		Template:   template,
		Title:      fmt.Sprintf("%s: %s", tpl.Description, params[tpl.Parameters[0]]),
		Parameters: params,
		State:      StateCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	t.goals[g.ID] = g
	t.sink.Emit("GoalTracker", "Created goal: "+g.Title)
	return g.ID, nil
}

// Get returns a snapshot of a goal.
func (t *Tracker) Get(id uuid.UUID) (Goal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.goals[id]
	if !ok {
		return Goal{}, fmt.Errorf("unknown goal ID: %s", id)
	}
	return *g, nil
}

// SetState transitions a goal to a new state.
func (t *Tracker) SetState(id uuid.UUID, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.goals[id]
	if !ok {
		return fmt.Errorf("unknown goal ID: %s", id)
	}
	old := g.State
	g.State = state
	g.UpdatedAt = time.Now()
	t.sink.Emit("GoalTracker", fmt.Sprintf("Goal state changed: %s -> %s", old, state))
	return nil
}

// AddReasoningStep appends a labeled step to the goal's reasoning trail.
func (t *Tracker) AddReasoningStep(id uuid.UUID, name, detail string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.goals[id]
	if !ok {
		return fmt.Errorf("unknown goal ID: %s", id)
	}
	step := ReasoningStep{
		Number:    len(g.Reasoning) + 1,
		Name:      name,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	g.Reasoning = append(g.Reasoning, step)
	g.UpdatedAt = step.Timestamp
	return nil
}

// AddSubgoal creates a goal and links it under a parent.
func (t *Tracker) AddSubgoal(parent uuid.UUID, template string, params map[string]string) (uuid.UUID, error) {
	t.mu.Lock()
	if _, ok := t.goals[parent]; !ok {
		t.mu.Unlock()
		return uuid.Nil, fmt.Errorf("unknown parent goal ID: %s", parent)
	}
	t.mu.Unlock()

	id, err := t.Create(template, params)
	if err != nil {
		return uuid.Nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.goals[id].Parent = parent
	p := t.goals[parent]
	p.Subgoals = append(p.Subgoals, id)
	p.UpdatedAt = time.Now()
	return id, nil
}

// SetResult stores a goal's result and marks it completed.
func (t *Tracker) SetResult(id uuid.UUID, result any) error {
	t.mu.Lock()
	g, ok := t.goals[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("unknown goal ID: %s", id)
	}
	g.Result = result
	g.UpdatedAt = time.Now()
	t.mu.Unlock()

	return t.SetState(id, StateCompleted)
}

// Active returns all goals not yet completed or failed.
func (t *Tracker) Active() []Goal {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Goal
	for _, g := range t.goals {
		if g.State != StateCompleted && g.State != StateFailed {
			out = append(out, *g)
		}
	}
	return out
}
