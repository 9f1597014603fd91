// Tavily search provider.
//
// Information Hiding:
// - Tavily request payload and response envelope
// - API key handling and rate-limit backoff
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/deepresearch/research"
)

const (
	// DefaultTavilyBaseURL is the public Tavily API endpoint.
	DefaultTavilyBaseURL = "https://api.tavily.com"

	tavilyName        = "Tavily"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
	maxBackoff        = 30 * time.Second
)

// ErrMissingAPIKey is returned when a search is attempted without a key.
var ErrMissingAPIKey = errors.New("tavily: API key is missing")

// StatusError is a non-200 response from Tavily.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tavily http %d", e.StatusCode)
	}
	return fmt.Sprintf("tavily http %d: %s", e.StatusCode, e.Body)
}

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
}

var _ research.SearchProvider = (*Tavily)(nil)

// TavilyOption configures a Tavily provider.
type TavilyOption func(*Tavily)

// WithBaseURL points the provider at another endpoint.
func WithBaseURL(baseURL string) TavilyOption {
	return func(t *Tavily) {
		if baseURL != "" {
			t.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client, e.g. to change the timeout.
func WithHTTPClient(client *http.Client) TavilyOption {
	return func(t *Tavily) {
		if client != nil {
			t.client = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) TavilyOption {
	return func(t *Tavily) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRateLimitRetry sets how many times a 429 is retried and the initial
// delay, which doubles on each attempt up to 30s.
func WithRateLimitRetry(maxRetries int, initial time.Duration) TavilyOption {
	return func(t *Tavily) {
		if maxRetries >= 0 {
			t.maxRetries = maxRetries
		}
		if initial > 0 {
			t.backoff = initial
		}
	}
}

// NewTavily constructs a Tavily search provider.
func NewTavily(apiKey string, opts ...TavilyOption) *Tavily {
	t := &Tavily{
		apiKey:     apiKey,
		baseURL:    DefaultTavilyBaseURL,
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements research.SearchProvider.
func (t *Tavily) Name() string {
	return tavilyName
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Query   string               `json:"query"`
	Results []research.RawRecord `json:"results"`
}

// Search posts query to Tavily and returns the raw result records.
func (t *Tavily) Search(ctx context.Context, query string, depth research.SearchDepth, maxResults int) ([]research.RawRecord, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if depth == "" {
		depth = research.SearchDepthBasic
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: string(depth),
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tavily request: %w", err)
	}

	resp, err := t.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", err)
	}

	t.logger.Debug("tavily search completed",
		zap.String("search_depth", string(depth)),
		zap.Int("max_results", maxResults),
		zap.Int("results", len(decoded.Results)),
	)
	return decoded.Results, nil
}

// post sends the request, backing off and retrying on 429.
func (t *Tavily) post(ctx context.Context, payload []byte) (*http.Response, error) {
	delay := t.backoff
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create tavily request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tavily request failed: %w", err)
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= t.maxRetries {
			return resp, nil
		}
		resp.Body.Close()

		t.logger.Warn("tavily rate limited, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if delay < maxBackoff {
			delay = min(delay*2, maxBackoff)
		}
	}
}
