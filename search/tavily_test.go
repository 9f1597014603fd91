package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/deepresearch/research"
)

func TestTavily_Search(t *testing.T) {
	var got tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"query": "quantum",
			"results": [
				{"title": "IBM", "url": "https://ibm.example", "content": "roadmap", "score": 0.9},
				{"title": "Blog", "url": "https://blog.example", "content": "notes", "published_date": "2025-03-01"}
			]
		}`))
	}))
	defer server.Close()

	tv := NewTavily("tvly-key", WithBaseURL(server.URL+"/"))
	records, err := tv.Search(context.Background(), "quantum", research.SearchDepthAdvanced, 2)
	require.NoError(t, err)

	assert.Equal(t, tavilyRequest{APIKey: "tvly-key", Query: "quantum", SearchDepth: "advanced", MaxResults: 2}, got)
	require.Len(t, records, 2)
	assert.Equal(t, "IBM", records[0]["title"])
	assert.Equal(t, "2025-03-01", records[1]["published_date"])
	assert.Equal(t, "Tavily", tv.Name())

	results := research.Normalize(records, tv.Name())
	assert.Len(t, results, 2)
	assert.Equal(t, "2025-03-01", results[1].Timestamp)
}

func TestTavily_DefaultsDepth(t *testing.T) {
	var got tavilyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	records, err := NewTavily("k", WithBaseURL(server.URL)).Search(context.Background(), "q", "", 3)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, "basic", got.SearchDepth)
}

func TestTavily_MissingAPIKey(t *testing.T) {
	_, err := NewTavily("  ").Search(context.Background(), "q", research.SearchDepthBasic, 2)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestTavily_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewTavily("bad", WithBaseURL(server.URL)).Search(context.Background(), "q", research.SearchDepthBasic, 2)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "tavily http 401: invalid api key", err.Error())
}

func TestTavily_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"url": "https://ok.example"}]}`))
	}))
	defer server.Close()

	tv := NewTavily("k", WithBaseURL(server.URL), WithRateLimitRetry(3, time.Millisecond))
	records, err := tv.Search(context.Background(), "q", research.SearchDepthBasic, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTavily_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	tv := NewTavily("k", WithBaseURL(server.URL), WithRateLimitRetry(2, time.Millisecond))
	_, err := tv.Search(context.Background(), "q", research.SearchDepthBasic, 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTavily_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewTavily("k", WithBaseURL(server.URL)).Search(context.Background(), "q", research.SearchDepthBasic, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode tavily response")
}
