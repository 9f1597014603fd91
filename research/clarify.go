package research

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	ijson "github.com/richinex/deepresearch/internal/json"
)

const maxFollowUpQuestions = 3

// ClarificationAdvisor judges whether results answer a query. It is never
// called by Workflow.Run.
type ClarificationAdvisor struct {
	model  LanguageModel
	logger *zap.Logger
	now    func() time.Time
}

// Assessment is the structured form of a sufficiency judgement.
type Assessment struct {
	Sufficient bool     `json:"sufficient"`
	Missing    []string `json:"missing"`
	Questions  []string `json:"questions"`
}

// NewClarificationAdvisor creates an advisor backed by model.
func NewClarificationAdvisor(model LanguageModel, opts ...Option) (*ClarificationAdvisor, error) {
	if model == nil {
		return nil, ErrNoLanguageModel
	}
	s := applyOptions(opts)
	return &ClarificationAdvisor{model: model, logger: s.logger, now: s.now}, nil
}

// AssessSufficiency returns the model's raw judgement and follow-up questions.
func (a *ClarificationAdvisor) AssessSufficiency(ctx context.Context, results []ResearchResult, query, context string) (string, error) {
	human, err := a.humanPrompt(results, query, context)
	if err != nil {
		return "", err
	}
	text, err := a.model.Generate(ctx, clarifySystemPrompt(a.now()), human)
	if err != nil {
		return "", fmt.Errorf("failed to assess research sufficiency: %w", err)
	}
	return text, nil
}

// Assess asks for a JSON judgement and parses it. Models implementing
// JSONLanguageModel are put in JSON mode; others are asked through the prompt.
func (a *ClarificationAdvisor) Assess(ctx context.Context, results []ResearchResult, query, context string) (*Assessment, error) {
	human, err := a.humanPrompt(results, query, context)
	if err != nil {
		return nil, err
	}
	system := clarifySystemPrompt(a.now()) + assessmentFormatInstruction

	var text string
	if jm, ok := a.model.(JSONLanguageModel); ok {
		text, err = jm.GenerateJSON(ctx, system, human)
	} else {
		text, err = a.model.Generate(ctx, system, human)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to assess research sufficiency: %w", err)
	}

	assessment, err := ijson.ExtractJSONFromResponse[Assessment](text)
	if err != nil {
		a.logger.Warn("unparseable sufficiency assessment", zap.Error(err))
		return nil, fmt.Errorf("failed to parse sufficiency assessment: %w", err)
	}
	if len(assessment.Questions) > maxFollowUpQuestions {
		assessment.Questions = assessment.Questions[:maxFollowUpQuestions]
	}
	return &assessment, nil
}

func (a *ClarificationAdvisor) humanPrompt(results []ResearchResult, query, context string) (string, error) {
	if results == nil {
		results = []ResearchResult{}
	}
	serialized, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize research results: %w", err)
	}
	return clarifyHumanPrompt(query, context, string(serialized)), nil
}
