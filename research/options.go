package research

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

const (
	// DefaultMaxResults is the number of search results requested when unset.
	DefaultMaxResults = 2
	// DefaultMaxTokens is the answer token budget when unset.
	DefaultMaxTokens = 256
	// MaxResultsLimit is the largest number of results a run may request.
	MaxResultsLimit = 20

	// defaultMaxIterations is recorded on the state; only one pass ever runs.
	defaultMaxIterations = 1
)

// RunRequest is the configuration surface of a run. Zero values select the
// defaults: basic depth, 2 results, 256 tokens.
type RunRequest struct {
	Topic       string      `json:"topic"`
	Context     string      `json:"context,omitempty"`
	SearchDepth SearchDepth `json:"search_depth,omitempty"`
	MaxResults  int         `json:"max_results,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

// WithDefaults returns a copy of r with unset fields filled in.
func (r RunRequest) WithDefaults() RunRequest {
	if r.SearchDepth == "" {
		r.SearchDepth = SearchDepthBasic
	}
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	return r
}

// Validate checks the request. Call WithDefaults first.
func (r RunRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	err := validation.ValidateStruct(&r,
		validation.Field(&r.SearchDepth, validation.Required, validation.In(SearchDepthBasic, SearchDepthAdvanced)),
		validation.Field(&r.MaxResults, validation.Required, validation.Min(1), validation.Max(MaxResultsLimit)),
		validation.Field(&r.MaxTokens, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// Option configures a Workflow and the components it builds.
type Option func(*settings)

type settings struct {
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func defaultSettings() settings {
	return settings{
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  newRunID,
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for the injected current date and
// answer timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunIDGenerator overrides how run ids are minted.
func WithRunIDGenerator(newID func() string) Option {
	return func(s *settings) {
		if newID != nil {
			s.newID = newID
		}
	}
}
