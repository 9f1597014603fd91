package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// MaxQueryLength is the number of characters kept from the model's query.
	MaxQueryLength = 380
	// QueryMarker is appended to every formulated query, truncated or not.
	QueryMarker = "..."
)

// QueryFormulator turns a research topic and context into one search query.
type QueryFormulator struct {
	model  LanguageModel
	logger *zap.Logger
	now    func() time.Time
}

// NewQueryFormulator creates a formulator backed by model.
func NewQueryFormulator(model LanguageModel, opts ...Option) (*QueryFormulator, error) {
	if model == nil {
		return nil, ErrNoLanguageModel
	}
	s := applyOptions(opts)
	return &QueryFormulator{model: model, logger: s.logger, now: s.now}, nil
}

// Formulate asks the model for a query once and bounds its length. Model
// failures are returned as is; there are no retries.
func (f *QueryFormulator) Formulate(ctx context.Context, topic, context string) (string, error) {
	raw, err := f.model.Generate(ctx, querySystemPrompt(f.now()), queryHumanPrompt(topic, context))
	if err != nil {
		return "", fmt.Errorf("failed to formulate search query: %w", err)
	}
	query := truncateQuery(raw)
	f.logger.Debug("formulated search query",
		zap.Int("raw_length", len([]rune(raw))),
		zap.String("query", query),
	)
	return query, nil
}

// truncateQuery keeps the first MaxQueryLength characters, trims surrounding
// whitespace and always appends QueryMarker.
func truncateQuery(raw string) string {
	runes := []rune(raw)
	if len(runes) > MaxQueryLength {
		runes = runes[:MaxQueryLength]
	}
	return strings.TrimSpace(string(runes)) + QueryMarker
}
