package pipeline

import (
	"fmt"
	"strings"

	"github.com/sievedata/sieve/pkg/pipeline/prompts"
)

// Prompts contains all the pipeline prompts loaded from embedded files.
type Prompts struct {
	Classify  string // Prompt for query classification
	Decompose string // Prompt for breaking complex queries into subtasks
	Generate  string // Prompt for SQL generation
	Snippet   string // Prompt for transform program generation
	Joins     string // Prompt for join relevance analysis
	Narrate   string // Prompt for result narration
}

// LoadPrompts loads all prompts from the embedded filesystem.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Classify, err = loadPrompt("CLASSIFY.md"); err != nil {
		return nil, fmt.Errorf("failed to load CLASSIFY: %w", err)
	}
	if p.Decompose, err = loadPrompt("DECOMPOSE.md"); err != nil {
		return nil, fmt.Errorf("failed to load DECOMPOSE: %w", err)
	}
	if p.Generate, err = loadPrompt("GENERATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load GENERATE: %w", err)
	}
	if p.Snippet, err = loadPrompt("SNIPPET.md"); err != nil {
		return nil, fmt.Errorf("failed to load SNIPPET: %w", err)
	}
	if p.Joins, err = loadPrompt("JOINS.md"); err != nil {
		return nil, fmt.Errorf("failed to load JOINS: %w", err)
	}
	if p.Narrate, err = loadPrompt("NARRATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load NARRATE: %w", err)
	}

	return p, nil
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}
