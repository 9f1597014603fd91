package research

import "context"

// LanguageModel generates text from a system instruction and one human turn.
// Implementations must be safe for concurrent use by independent runs.
type LanguageModel interface {
	Generate(ctx context.Context, systemPrompt, humanPrompt string) (string, error)
}

// JSONLanguageModel is implemented by models that can be asked for a JSON
// object response. It is optional; callers fall back to Generate.
type JSONLanguageModel interface {
	LanguageModel
	GenerateJSON(ctx context.Context, systemPrompt, humanPrompt string) (string, error)
}

// SearchProvider runs a single web search.
type SearchProvider interface {
	// Name is the provenance label recorded on each result (e.g. "Tavily").
	Name() string

	// Search returns the raw records for query.
	Search(ctx context.Context, query string, depth SearchDepth, maxResults int) ([]RawRecord, error)
}
