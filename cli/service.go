// Research service shared by the CLI commands and the HTTP host.
//
// Information Hiding:
// - Request defaulting from configuration
// - Memory bookkeeping after a run
// - Clarification flow (research stage, then the advisor)
package cli

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/deepresearch/config"
	"github.com/richinex/deepresearch/research"
	"github.com/richinex/deepresearch/storage"
)

// ErrMemoryDisabled is returned by memory operations when no memory is configured.
var ErrMemoryDisabled = errors.New("research memory is not configured")

// Service runs research on behalf of a host.
type Service struct {
	workflow *research.Workflow
	advisor  *research.ClarificationAdvisor
	memory   storage.ResearchMemory
	defaults config.ResearchConfig
	logger   *zap.Logger
}

// ResearchRequest is a run request plus host-level options.
type ResearchRequest struct {
	research.RunRequest
	// Remember stores the results in memory once the run completes.
	Remember bool `json:"remember,omitempty"`
}

// ResearchResponse is what a host shows for one run.
type ResearchResponse struct {
	RunID       string                    `json:"run_id"`
	SearchQuery string                    `json:"search_query"`
	Answer      *research.Answer          `json:"answer"`
	Results     []research.ResearchResult `json:"results"`
	MemoryID    string                    `json:"memory_id,omitempty"`
}

// ClarifyResponse pairs the results with the advisor's judgement.
type ClarifyResponse struct {
	SearchQuery   string                    `json:"search_query"`
	Results       []research.ResearchResult `json:"results"`
	Clarification string                    `json:"clarification"`
}

// NewService builds a service. memory may be nil.
func NewService(model research.LanguageModel, search research.SearchProvider, memory storage.ResearchMemory, defaults config.ResearchConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	workflow, err := research.NewWorkflow(model, search, research.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	advisor, err := research.NewClarificationAdvisor(model, research.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Service{
		workflow: workflow,
		advisor:  advisor,
		memory:   memory,
		defaults: defaults,
		logger:   logger,
	}, nil
}

// Research runs the workflow once.
func (s *Service) Research(ctx context.Context, req ResearchRequest) (*ResearchResponse, error) {
	runReq, err := s.applyDefaults(req.RunRequest)
	if err != nil {
		return nil, err
	}
	state, err := s.workflow.Execute(ctx, runReq)
	if err != nil {
		return nil, err
	}

	resp := &ResearchResponse{
		RunID:       state.RunID,
		SearchQuery: state.SearchQuery,
		Answer:      state.CurrentAnswer,
		Results:     state.ResearchResults,
	}
	if req.Remember {
		id, err := s.remember(ctx, state)
		if err != nil {
			return nil, err
		}
		resp.MemoryID = id
	}
	return resp, nil
}

// Clarify runs the research stage and asks the advisor whether the results
// are sufficient.
func (s *Service) Clarify(ctx context.Context, req research.RunRequest) (*ClarifyResponse, error) {
	runReq, err := s.applyDefaults(req)
	if err != nil {
		return nil, err
	}
	state, err := s.workflow.Research(ctx, runReq)
	if err != nil {
		return nil, err
	}
	text, err := s.advisor.AssessSufficiency(ctx, state.ResearchResults, state.Topic, state.Context)
	if err != nil {
		return nil, err
	}
	return &ClarifyResponse{
		SearchQuery:   state.SearchQuery,
		Results:       state.ResearchResults,
		Clarification: text,
	}, nil
}

// Similar returns stored research similar to query.
func (s *Service) Similar(ctx context.Context, query string, n int) ([]storage.MemoryRecord, error) {
	if s.memory == nil {
		return nil, ErrMemoryDisabled
	}
	return s.memory.RetrieveSimilar(ctx, query, n)
}

// ClearMemory removes all stored research.
func (s *Service) ClearMemory(ctx context.Context) error {
	if s.memory == nil {
		return ErrMemoryDisabled
	}
	return s.memory.Clear(ctx)
}

func (s *Service) remember(ctx context.Context, state *research.WorkflowState) (string, error) {
	if s.memory == nil {
		return "", ErrMemoryDisabled
	}
	meta := map[string]any{
		"run_id":       state.RunID,
		"search_query": state.SearchQuery,
		"timestamp":    state.StartedAt.UTC().Format(time.RFC3339),
	}
	if state.CurrentAnswer != nil {
		meta["source_count"] = state.CurrentAnswer.Metadata.SourceCount
	}
	id, err := s.memory.Store(ctx, state.Topic, state.ResearchResults, meta)
	if err != nil {
		return "", err
	}
	s.logger.Info("stored research in memory", zap.String("run_id", state.RunID), zap.String("memory_id", id))
	return id, nil
}

// applyDefaults fills unset fields from configuration. Anything still unset
// gets the workflow's own defaults.
func (s *Service) applyDefaults(req research.RunRequest) (research.RunRequest, error) {
	if req.SearchDepth == "" && s.defaults.SearchDepth != "" {
		depth, err := research.ParseSearchDepth(s.defaults.SearchDepth)
		if err != nil {
			return req, err
		}
		req.SearchDepth = depth
	}
	if req.MaxResults == 0 {
		req.MaxResults = s.defaults.MaxResults
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = s.defaults.MaxTokens
	}
	return req, nil
}
