package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyParsesResponse(t *testing.T) {
	llm := &stubLLM{classify: "```json\n{\"complexity\": \"complex\", \"modality\": \"hybrid\"}\n```"}
	p := newTestProcessor(t, llm, defaultFakeStore())

	a := p.classify(context.Background(), "some query", []string{"orders"})
	assert.Equal(t, ComplexityComplex, a.Complexity)
	assert.Equal(t, ModalityHybrid, a.Modality)
}

func TestClassifyFallbackOnMalformedJSON(t *testing.T) {
	llm := &stubLLM{classify: "I think this query is probably simple?"}
	p := newTestProcessor(t, llm, defaultFakeStore())

	a := p.classify(context.Background(), "some query", []string{"orders"})
	assert.Equal(t, ComplexitySimple, a.Complexity)
	assert.Equal(t, ModalitySQL, a.Modality)
}

func TestClassifyFallbackOnLLMError(t *testing.T) {
	llm := &stubLLM{err: errors.New("api unavailable")}
	p := newTestProcessor(t, llm, defaultFakeStore())

	a := p.classify(context.Background(), "some query", []string{"orders"})
	assert.Equal(t, ComplexitySimple, a.Complexity)
	assert.Equal(t, ModalitySQL, a.Modality)
}

func TestParseClassifyResponseRejectsUnknownLabels(t *testing.T) {
	_, err := parseClassifyResponse(`{"complexity": "medium", "modality": "sql"}`)
	require.Error(t, err)

	_, err = parseClassifyResponse(`{"complexity": "simple", "modality": "bash"}`)
	require.Error(t, err)
}

func TestParseClassifyResponseNormalizesCase(t *testing.T) {
	a, err := parseClassifyResponse(`{"complexity": "Simple", "modality": "SQL"}`)
	require.NoError(t, err)
	assert.Equal(t, ComplexitySimple, a.Complexity)
	assert.Equal(t, ModalitySQL, a.Modality)
}
