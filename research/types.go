package research

import (
	"encoding/json"
	"fmt"
	"time"
)

// SearchDepth selects how thoroughly the search provider searches.
type SearchDepth string

const (
	SearchDepthBasic    SearchDepth = "basic"
	SearchDepthAdvanced SearchDepth = "advanced"
)

// ParseSearchDepth parses a depth name. An empty string yields basic.
func ParseSearchDepth(s string) (SearchDepth, error) {
	switch SearchDepth(s) {
	case "", SearchDepthBasic:
		return SearchDepthBasic, nil
	case SearchDepthAdvanced:
		return SearchDepthAdvanced, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSearchDepth, s)
	}
}

// RawRecord is one loosely typed record returned by a search provider.
// Any of title, content, url, link, timestamp and error may be absent.
type RawRecord map[string]any

// String returns the value under key rendered as a string, and whether the
// key was present at all.
func (r RawRecord) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", ok
	}
	if s, isString := v.(string); isString {
		return s, true
	}
	return fmt.Sprint(v), true
}

// HasError reports whether the record carries an error marker.
func (r RawRecord) HasError() bool {
	_, ok := r["error"]
	return ok
}

// ResearchResult is a normalized search result. Once stored, URL always
// starts with http:// or https://, except on the degenerate error entry
// produced when the search provider fails, which carries only Error.
type ResearchResult struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

// IsError reports whether r is the degenerate error entry.
func (r ResearchResult) IsError() bool {
	return r.Error != ""
}

// MarshalJSON renders the error entry as {"error": msg} and every other
// result with all of its fields.
func (r ResearchResult) MarshalJSON() ([]byte, error) {
	if r.IsError() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	type plain ResearchResult
	return json.Marshal(plain(r))
}

// errorResult builds the one-element degenerate result list.
func errorResult(err error) []ResearchResult {
	return []ResearchResult{{Error: err.Error()}}
}

// Source is a citation derived from the research results.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Answer is the terminal artifact of a run.
type Answer struct {
	Content  string         `json:"content"`
	Sources  []Source       `json:"sources"`
	Metadata AnswerMetadata `json:"metadata"`
}

// AnswerMetadata describes how an answer was produced.
type AnswerMetadata struct {
	Query       string `json:"query"`
	Timestamp   string `json:"timestamp"`
	SourceCount int    `json:"source_count"`
	MaxTokens   int    `json:"max_tokens"`
}

// Stage names a step of the workflow state machine.
type Stage string

const (
	StageStart    Stage = "start"
	StageResearch Stage = "research"
	StageAnswer   Stage = "answer"
	StageEnd      Stage = "end"
)

// WorkflowState is the mutable record carried through one run. It is owned
// by the Workflow for the duration of Run and never shared across runs.
type WorkflowState struct {
	RunID   string
	Topic   string
	Context string

	// SearchQuery is the formulated query the search was issued with.
	SearchQuery     string
	ResearchResults []ResearchResult
	CurrentAnswer   *Answer

	// IterationCount is incremented once by the research stage. MaxIterations
	// is recorded but never consulted: exactly one research pass runs.
	IterationCount int
	MaxIterations  int

	SearchDepth SearchDepth
	MaxResults  int
	MaxTokens   int

	Stage     Stage
	StartedAt time.Time
}
