package research

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTopic is returned when a run is started without a topic.
	ErrEmptyTopic = errors.New("research topic must not be empty")

	// ErrInvalidSearchDepth is returned for a depth other than basic or advanced.
	ErrInvalidSearchDepth = errors.New("invalid search depth")

	// ErrInvalidOptions wraps run option validation failures.
	ErrInvalidOptions = errors.New("invalid research options")

	// ErrNoLanguageModel is returned when a component is built without a model.
	ErrNoLanguageModel = errors.New("language model is required")

	// ErrNoSearchProvider is returned when a workflow is built without a search provider.
	ErrNoSearchProvider = errors.New("search provider is required")
)

// StageError reports which workflow stage aborted a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
