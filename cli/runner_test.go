package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/deepresearch/config"
	"github.com/richinex/deepresearch/research"
	"github.com/richinex/deepresearch/storage"
)

func TestWriteResearch(t *testing.T) {
	resp := &ResearchResponse{
		Answer: &research.Answer{
			Content: "**Executive Summary**\nDone.",
			Sources: []research.Source{{Title: "Source", URL: "https://anon.example"}},
		},
		MemoryID: "research_abc",
	}

	var b strings.Builder
	require.NoError(t, WriteResearch(&b, resp, false))
	assert.Equal(t, "**Executive Summary**\nDone.\n\nReferences\n1. Source Document - https://anon.example\n\nStored in memory as research_abc\n", b.String())

	b.Reset()
	require.NoError(t, WriteResearch(&b, resp, true))
	assert.Contains(t, b.String(), `"memory_id": "research_abc"`)
}

func TestWriteClarify(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteClarify(&b, &ClarifyResponse{SearchQuery: "q...", Clarification: "  Ask more.\n"}, false))
	assert.Equal(t, "Search query: q...\n\nAsk more.\n", b.String())
}

func TestWriteMemoryRecords(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteMemoryRecords(&b, nil, false))
	assert.Equal(t, "No similar research found.\n", b.String())

	b.Reset()
	records := []storage.MemoryRecord{{
		ID:        "research_1",
		Query:     "quantum",
		Content:   strings.Repeat("x", 250),
		Score:     0.5,
		CreatedAt: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, WriteMemoryRecords(&b, records, false))
	out := b.String()
	assert.Contains(t, out, "1. research_1 (score 0.500)")
	assert.Contains(t, out, "Query: quantum")
	assert.Contains(t, out, "Stored: 2025-04-03T00:00:00Z")
	assert.Contains(t, out, strings.Repeat("x", 200)+"...")
}

func TestCreateProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	provider, err := createProvider(config.Settings{LLM: config.LLMConfig{
		Provider: "anthropic", Model: "claude-test", MaxTokens: 1024, Temperature: 0.2,
	}})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", provider.Name())
	assert.Equal(t, "claude-test", provider.Model())

	t.Setenv("DEEPSEEK_API_KEY", "")
	_, err = createProvider(config.Settings{LLM: config.LLMConfig{Provider: "deepseek"}})
	assert.Error(t, err)
}

func TestOpenMemory(t *testing.T) {
	path := t.TempDir() + "/memory.db"
	mem, err := openMemory(config.Settings{Memory: config.MemoryConfig{DBPath: path, Embedder: "hash"}})
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	t.Setenv("OPENAI_API_KEY", "")
	_, err = openMemory(config.Settings{Memory: config.MemoryConfig{DBPath: path, Embedder: "openai"}})
	assert.Error(t, err)
}
