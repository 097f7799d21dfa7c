package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sievedata/sieve/pkg/metrics"
)

// buildPlan topologically sorts the subtasks by dependency and materializes
// one executable step per subtask. Generation failures propagate: an
// unusable plan must not proceed to execution.
func (p *Processor) buildPlan(ctx context.Context, r *run, subtasks []Subtask, tables []string) ([]ExecutionStep, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("plan").Observe(time.Since(start).Seconds())
	}()

	order := topoOrder(subtasks)

	byID := make(map[string]Subtask, len(subtasks))
	for _, st := range subtasks {
		byID[st.ID] = st
	}

	steps := make([]ExecutionStep, 0, len(subtasks))
	for _, id := range order {
		st, ok := byID[id]
		if !ok {
			// Placeholder node: referenced as a dependency but never
			// defined. It constrains ordering only.
			continue
		}

		var payload string
		var err error
		switch st.Modality {
		case ModalitySQL:
			payload, err = p.generateSQL(ctx, r, st.ID, st.Description, tables)
		case ModalitySnippet:
			payload, err = p.generateSnippet(ctx, r, st.Description)
		default:
			err = fmt.Errorf("subtask %s has unsupported modality %q", st.ID, st.Modality)
		}
		if err != nil {
			return nil, fmt.Errorf("synthesizing step for subtask %s: %w", st.ID, err)
		}

		steps = append(steps, ExecutionStep{
			Seq:       len(steps) + 1,
			SubtaskID: st.ID,
			Modality:  st.Modality,
			Payload:   payload,
		})
	}

	r.step("Execution Plan", fmt.Sprintf("%d steps in dependency order", len(steps)))
	return steps, nil
}

// topoOrder orders subtask IDs so that every subtask appears after all of
// its dependencies. Iterative depth-first traversal with three-color
// marking; an edge back to an in-progress node (a cycle) is silently
// dropped, so the traversal always terminates and returns every node.
// IDs that appear only as dependency values become placeholder nodes with
// no outgoing edges. Ordering among independent nodes follows traversal
// discovery order.
func topoOrder(subtasks []Subtask) []string {
	const (
		white = iota // unvisited
		grey         // in progress
		black        // done
	)

	deps := make(map[string][]string, len(subtasks))
	roots := make([]string, 0, len(subtasks))
	for _, st := range subtasks {
		deps[st.ID] = st.DependsOn
		roots = append(roots, st.ID)
	}
	for _, st := range subtasks {
		for _, d := range st.DependsOn {
			if _, ok := deps[d]; !ok {
				deps[d] = nil
			}
		}
	}

	color := make(map[string]int, len(deps))
	order := make([]string, 0, len(deps))

	type visit struct {
		id   string
		next int
	}

	for _, root := range roots {
		if color[root] != white {
			continue
		}
		color[root] = grey
		stack := []visit{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			edges := deps[top.id]

			if top.next < len(edges) {
				dep := edges[top.next]
				top.next++
				switch color[dep] {
				case white:
					color[dep] = grey
					stack = append(stack, visit{id: dep})
				case grey:
					// Back-edge: this dependency closes a cycle. Drop it
					// and keep going with the node's other dependencies.
				case black:
					// Already scheduled.
				}
				continue
			}

			color[top.id] = black
			order = append(order, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	return order
}
