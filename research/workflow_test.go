package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkflow(t *testing.T, model LanguageModel, search SearchProvider) *Workflow {
	t.Helper()
	wf, err := NewWorkflow(model, search,
		WithClock(fixedClock),
		WithRunIDGenerator(func() string { return "run-1" }),
	)
	require.NoError(t, err)
	return wf
}

func TestWorkflow_RunEndToEnd(t *testing.T) {
	model := &scriptedModel{responses: []string{"quantum computing breakthroughs 2025", "answer body"}}
	search := &fakeSearch{records: []RawRecord{
		{"title": "IBM roadmap", "content": "c1", "url": "https://ibm.example/q"},
		{"title": "Google Willow", "content": "c2", "url": "https://google.example/willow"},
	}}
	wf := newTestWorkflow(t, model, search)

	answer, err := wf.Run(context.Background(), RunRequest{Topic: "quantum computing 2025"})
	require.NoError(t, err)

	assert.Equal(t, "answer body", answer.Content)
	assert.Equal(t, 2, answer.Metadata.SourceCount)
	assert.Equal(t, "quantum computing 2025", answer.Metadata.Query)
	assert.Equal(t, DefaultMaxTokens, answer.Metadata.MaxTokens)
	assert.Equal(t, []Source{
		{Title: "IBM roadmap", URL: "https://ibm.example/q"},
		{Title: "Google Willow", URL: "https://google.example/willow"},
	}, answer.Sources)

	require.Len(t, search.calls, 1)
	assert.Equal(t, searchCall{
		Query:      "quantum computing breakthroughs 2025...",
		Depth:      SearchDepthBasic,
		MaxResults: DefaultMaxResults,
	}, search.calls[0])
}

func TestWorkflow_ExecuteState(t *testing.T) {
	model := &scriptedModel{responses: []string{"q", "a"}}
	search := &fakeSearch{records: []RawRecord{{"title": "t", "url": "https://x.example"}, {"url": "nope"}}}
	wf := newTestWorkflow(t, model, search)

	state, err := wf.Execute(context.Background(), RunRequest{
		Topic:       "topic",
		Context:     "ctx",
		SearchDepth: SearchDepthAdvanced,
		MaxResults:  5,
		MaxTokens:   1024,
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", state.RunID)
	assert.Equal(t, StageEnd, state.Stage)
	assert.Equal(t, 1, state.IterationCount)
	assert.Equal(t, 1, state.MaxIterations)
	assert.Equal(t, "q...", state.SearchQuery)
	assert.Len(t, state.ResearchResults, 1)
	assert.Equal(t, fixedNow, state.StartedAt)
	require.NotNil(t, state.CurrentAnswer)
	assert.Equal(t, 1024, state.CurrentAnswer.Metadata.MaxTokens)
	assert.Equal(t, SearchDepthAdvanced, search.calls[0].Depth)
	assert.Equal(t, 5, search.calls[0].MaxResults)
	assert.Contains(t, model.calls[1].Human, "Context: ctx")
}

func TestWorkflow_ProviderFailureIsContained(t *testing.T) {
	model := &scriptedModel{responses: []string{"query", "thin answer"}}
	search := &fakeSearch{err: errors.New("tavily: 502 bad gateway")}
	wf := newTestWorkflow(t, model, search)

	state, err := wf.Execute(context.Background(), RunRequest{Topic: "topic"})
	require.NoError(t, err)

	require.Len(t, state.ResearchResults, 1)
	assert.True(t, state.ResearchResults[0].IsError())
	assert.Equal(t, "tavily: 502 bad gateway", state.ResearchResults[0].Error)
	assert.Equal(t, "query...", state.SearchQuery)
	assert.Equal(t, 1, state.IterationCount)

	answer := state.CurrentAnswer
	require.NotNil(t, answer)
	assert.Equal(t, "thin answer", answer.Content)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 0, answer.Metadata.SourceCount)
	assert.Contains(t, model.calls[1].Human, "Error: tavily: 502 bad gateway")
}

func TestWorkflow_CancelledSearchAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := &scriptedModel{responses: []string{"query", "unused"}}
	search := &cancellingSearch{cancel: cancel}
	wf := newTestWorkflow(t, model, search)

	_, err := wf.Run(ctx, RunRequest{Topic: "topic"})

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageResearch, stageErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, model.calls, 1)
}

type cancellingSearch struct {
	cancel context.CancelFunc
}

func (s *cancellingSearch) Name() string { return "Tavily" }

func (s *cancellingSearch) Search(ctx context.Context, _ string, _ SearchDepth, _ int) ([]RawRecord, error) {
	s.cancel()
	return nil, ctx.Err()
}

func TestWorkflow_ModelFailurePropagates(t *testing.T) {
	boom := errors.New("model unavailable")
	tests := []struct {
		name        string
		errs        []error
		stage       Stage
		searchCalls int
	}{
		{"query formulation", []error{boom}, StageResearch, 0},
		{"answer synthesis", []error{nil, boom}, StageAnswer, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{responses: []string{"q"}, errs: tt.errs}
			search := &fakeSearch{records: []RawRecord{{"url": "https://x.example"}}}
			wf := newTestWorkflow(t, model, search)

			answer, err := wf.Run(context.Background(), RunRequest{Topic: "topic"})
			assert.Nil(t, answer)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tt.stage, stageErr.Stage)
			assert.ErrorIs(t, err, boom)
			assert.True(t, strings.HasPrefix(err.Error(), string(tt.stage)+" stage failed"))
			assert.Len(t, search.calls, tt.searchCalls)
		})
	}
}

func TestWorkflow_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  RunRequest
		want error
	}{
		{"empty topic", RunRequest{}, ErrEmptyTopic},
		{"blank topic", RunRequest{Topic: "  \t"}, ErrEmptyTopic},
		{"unknown depth", RunRequest{Topic: "t", SearchDepth: "deep"}, ErrInvalidOptions},
		{"too many results", RunRequest{Topic: "t", MaxResults: MaxResultsLimit + 1}, ErrInvalidOptions},
		{"negative results", RunRequest{Topic: "t", MaxResults: -1}, ErrInvalidOptions},
		{"negative tokens", RunRequest{Topic: "t", MaxTokens: -5}, ErrInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &scriptedModel{}
			search := &fakeSearch{}
			wf := newTestWorkflow(t, model, search)

			_, err := wf.Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, model.calls)
			assert.Empty(t, search.calls)
		})
	}
}

func TestNewWorkflow_RequiresCollaborators(t *testing.T) {
	_, err := NewWorkflow(nil, &fakeSearch{})
	assert.ErrorIs(t, err, ErrNoLanguageModel)

	_, err = NewWorkflow(&scriptedModel{}, nil)
	assert.ErrorIs(t, err, ErrNoSearchProvider)
}

func TestParseSearchDepth(t *testing.T) {
	d, err := ParseSearchDepth("")
	require.NoError(t, err)
	assert.Equal(t, SearchDepthBasic, d)

	d, err = ParseSearchDepth("advanced")
	require.NoError(t, err)
	assert.Equal(t, SearchDepthAdvanced, d)

	_, err = ParseSearchDepth("exhaustive")
	assert.ErrorIs(t, err, ErrInvalidSearchDepth)
}

func TestWorkflow_ResearchOnly(t *testing.T) {
	model := &scriptedModel{responses: []string{"query"}}
	search := &fakeSearch{records: []RawRecord{{"title": "t", "url": "https://x.example"}}}
	wf := newTestWorkflow(t, model, search)

	state, err := wf.Research(context.Background(), RunRequest{Topic: "topic"})
	require.NoError(t, err)

	assert.Equal(t, StageResearch, state.Stage)
	assert.Equal(t, "query...", state.SearchQuery)
	assert.Len(t, state.ResearchResults, 1)
	assert.Nil(t, state.CurrentAnswer)
	assert.Len(t, model.calls, 1)

	_, err = wf.Research(context.Background(), RunRequest{})
	assert.ErrorIs(t, err, ErrEmptyTopic)
}
