package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SourceFallbackTitle is used for a citation whose title cleans to nothing.
const SourceFallbackTitle = "Source"

// AnswerSynthesizer drafts the final answer from normalized results.
type AnswerSynthesizer struct {
	model  LanguageModel
	logger *zap.Logger
	now    func() time.Time
}

// NewAnswerSynthesizer creates a synthesizer backed by model.
func NewAnswerSynthesizer(model LanguageModel, opts ...Option) (*AnswerSynthesizer, error) {
	if model == nil {
		return nil, ErrNoLanguageModel
	}
	s := applyOptions(opts)
	return &AnswerSynthesizer{model: model, logger: s.logger, now: s.now}, nil
}

// Synthesize calls the model once and assembles the Answer. The source list
// is computed from results, not from the model's prose, and the two may
// disagree.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, results []ResearchResult, topic, context string, maxTokens int) (*Answer, error) {
	now := s.now()
	content, err := s.model.Generate(ctx,
		answerSystemPrompt(now, maxTokens),
		answerHumanPrompt(topic, context, FormatResults(results)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize answer: %w", err)
	}

	sources := ExtractSources(results)
	s.logger.Debug("synthesized answer",
		zap.Int("results", len(results)),
		zap.Int("sources", len(sources)),
		zap.Int("answer_length", len(content)),
	)

	return &Answer{
		Content: content,
		Sources: sources,
		Metadata: AnswerMetadata{
			Query:       topic,
			Timestamp:   now.Format(time.RFC3339),
			SourceCount: len(sources),
			MaxTokens:   maxTokens,
		},
	}, nil
}

// FormatResults renders every result, error entries included, as numbered
// "Result N:" sections.
func FormatResults(results []ResearchResult) string {
	sections := make([]string, 0, len(results))
	for i, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "Result %d:\n", i+1)
		if r.IsError() {
			fmt.Fprintf(&b, "Error: %s\n", r.Error)
		}
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Content: %s\n", r.Content)
		fmt.Fprintf(&b, "Source: %s\n", r.Source)
		fmt.Fprintf(&b, "URL: %s\n", r.URL)
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n")
}

// ExtractSources returns one citation per distinct url in first-seen order.
// Results without a url are skipped.
func ExtractSources(results []ResearchResult) []Source {
	seen := make(map[string]struct{}, len(results))
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}

		title := CleanTitle(r.Title)
		if title == "" {
			title = SourceFallbackTitle
		}
		sources = append(sources, Source{Title: title, URL: r.URL})
	}
	return sources
}
