package cli

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/richinex/deepresearch/config"
	"github.com/richinex/deepresearch/research"
	"github.com/richinex/deepresearch/storage"
)

// echoModel answers query prompts with a fixed query and everything else
// with a canned body.
type echoModel struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *echoModel) Generate(_ context.Context, systemPrompt, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	switch {
	case strings.Contains(systemPrompt, "search query"):
		return "quantum computing 2025", nil
	case strings.Contains(systemPrompt, "sufficient"):
		return "1. Which vendors?", nil
	default:
		return "**Executive Summary**\nQuantum progressed.", nil
	}
}

type stubSearch struct {
	records []research.RawRecord
	err     error
	depth   research.SearchDepth
	max     int
}

func (s *stubSearch) Name() string { return "Tavily" }

func (s *stubSearch) Search(_ context.Context, _ string, depth research.SearchDepth, maxResults int) ([]research.RawRecord, error) {
	s.depth, s.max = depth, maxResults
	return s.records, s.err
}

func defaultRecords() []research.RawRecord {
	return []research.RawRecord{
		{"title": "IBM", "content": "roadmap", "url": "https://ibm.example"},
		{"title": "", "content": "notes", "url": "https://anon.example"},
	}
}

func newTestService(t *testing.T, model research.LanguageModel, search research.SearchProvider, memory storage.ResearchMemory) *Service {
	t.Helper()
	svc, err := NewService(model, search, memory, config.ResearchConfig{SearchDepth: "basic", MaxResults: 2, MaxTokens: 256}, nil)
	require.NoError(t, err)
	return svc
}
