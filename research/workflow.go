package research

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Workflow runs the fixed START -> RESEARCH -> ANSWER -> END pipeline.
// A Workflow holds no per-run state and may serve concurrent runs, provided
// its collaborators are safe for concurrent use.
type Workflow struct {
	formulator  *QueryFormulator
	search      SearchProvider
	synthesizer *AnswerSynthesizer
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// NewWorkflow wires a workflow from a language model and a search provider.
func NewWorkflow(model LanguageModel, search SearchProvider, opts ...Option) (*Workflow, error) {
	if model == nil {
		return nil, ErrNoLanguageModel
	}
	if search == nil {
		return nil, ErrNoSearchProvider
	}
	formulator, err := NewQueryFormulator(model, opts...)
	if err != nil {
		return nil, err
	}
	synthesizer, err := NewAnswerSynthesizer(model, opts...)
	if err != nil {
		return nil, err
	}
	s := applyOptions(opts)
	return &Workflow{
		formulator:  formulator,
		search:      search,
		synthesizer: synthesizer,
		logger:      s.logger,
		now:         s.now,
		newID:       s.newID,
	}, nil
}

type stageFunc func(ctx context.Context, state *WorkflowState) error

// Run executes one research pass and returns the answer.
func (w *Workflow) Run(ctx context.Context, req RunRequest) (*Answer, error) {
	state, err := w.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return state.CurrentAnswer, nil
}

// Execute is Run returning the final state, for hosts that also want the
// formulated query and the normalized results.
func (w *Workflow) Execute(ctx context.Context, req RunRequest) (*WorkflowState, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		runsTotal.WithLabelValues(runStatusFailed).Inc()
		return nil, err
	}

	state := w.newState(req)
	logger := w.logger.With(zap.String("run_id", state.RunID))
	logger.Info("research run started",
		zap.String("topic", state.Topic),
		zap.String("search_depth", string(state.SearchDepth)),
		zap.Int("max_results", state.MaxResults),
		zap.Int("max_tokens", state.MaxTokens),
	)

	stages := []struct {
		stage Stage
		run   stageFunc
	}{
		{StageResearch, w.researchStage},
		{StageAnswer, w.answerStage},
	}
	for _, st := range stages {
		if err := w.runStage(ctx, logger, state, st.stage, st.run); err != nil {
			runsTotal.WithLabelValues(runStatusFailed).Inc()
			return nil, err
		}
	}
	state.Stage = StageEnd

	status := runStatusSuccess
	if len(state.ResearchResults) == 1 && state.ResearchResults[0].IsError() {
		status = runStatusDegraded
	}
	runsTotal.WithLabelValues(status).Inc()
	logger.Info("research run completed",
		zap.String("status", status),
		zap.Int("source_count", state.CurrentAnswer.Metadata.SourceCount),
		zap.Duration("elapsed", w.now().Sub(state.StartedAt)),
	)
	return state, nil
}

// researchStage formulates the query and searches. A search failure becomes
// a single error entry and the run goes on; a cancelled context does not.
func (w *Workflow) researchStage(ctx context.Context, state *WorkflowState) error {
	query, err := w.formulator.Formulate(ctx, state.Topic, state.Context)
	if err != nil {
		return err
	}
	state.SearchQuery = query

	records, err := w.search.Search(ctx, query, state.SearchDepth, state.MaxResults)
	switch {
	case err != nil && ctx.Err() != nil:
		return errors.Join(ctx.Err(), err)
	case err != nil:
		providerFailures.Inc()
		w.logger.Warn("search provider failed, continuing with degenerate results",
			zap.String("run_id", state.RunID),
			zap.String("provider", w.search.Name()),
			zap.String("query", query),
			zap.Error(err),
		)
		state.ResearchResults = errorResult(err)
	default:
		results, dropped := normalize(records, w.search.Name())
		if dropped > 0 {
			droppedRecords.Add(float64(dropped))
		}
		w.logger.Debug("normalized search results",
			zap.String("run_id", state.RunID),
			zap.Int("raw", len(records)),
			zap.Int("kept", len(results)),
			zap.Int("dropped", dropped),
		)
		state.ResearchResults = results
	}

	state.IterationCount++
	return nil
}

func (w *Workflow) answerStage(ctx context.Context, state *WorkflowState) error {
	answer, err := w.synthesizer.Synthesize(ctx, state.ResearchResults, state.Topic, state.Context, state.MaxTokens)
	if err != nil {
		return err
	}
	state.CurrentAnswer = answer
	return nil
}

// Research runs only the research stage and returns the state with the
// query and results populated. Hosts use it to feed the ClarificationAdvisor.
func (w *Workflow) Research(ctx context.Context, req RunRequest) (*WorkflowState, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	state := w.newState(req)
	logger := w.logger.With(zap.String("run_id", state.RunID))
	if err := w.runStage(ctx, logger, state, StageResearch, w.researchStage); err != nil {
		return nil, err
	}
	return state, nil
}

func (w *Workflow) newState(req RunRequest) *WorkflowState {
	return &WorkflowState{
		RunID:         w.newID(),
		Topic:         req.Topic,
		Context:       req.Context,
		MaxIterations: defaultMaxIterations,
		SearchDepth:   req.SearchDepth,
		MaxResults:    req.MaxResults,
		MaxTokens:     req.MaxTokens,
		Stage:         StageStart,
		StartedAt:     w.now(),
	}
}

func (w *Workflow) runStage(ctx context.Context, logger *zap.Logger, state *WorkflowState, stage Stage, run stageFunc) error {
	state.Stage = stage
	started := time.Now()
	err := run(ctx, state)
	elapsed := time.Since(started)
	stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	if err != nil {
		logger.Error("research stage failed", zap.String("stage", string(stage)), zap.Error(err))
		return &StageError{Stage: stage, Err: err}
	}
	logger.Info("research stage completed", zap.String("stage", string(stage)), zap.Duration("duration", elapsed))
	return nil
}

func newRunID() string {
	return uuid.New().String()
}
