package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubProvider struct {
	reply    string
	err      error
	messages []ChatMessage
	format   *ResponseFormat
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return s.ChatWithFormat(ctx, messages, nil)
}

func (s *stubProvider) ChatWithFormat(_ context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error) {
	s.messages = messages
	s.format = format
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Content: s.reply}, nil
}

func TestClientGenerateBuildsTwoTurns(t *testing.T) {
	stub := &stubProvider{reply: "ok"}
	client := NewClient(stub)

	out, err := client.Generate(context.Background(), "system text", "human text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "ok" {
		t.Errorf("expected 'ok', got %q", out)
	}
	if len(stub.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(stub.messages))
	}
	if stub.messages[0].Role != RoleSystem || stub.messages[1].Role != RoleUser {
		t.Errorf("unexpected roles: %+v", stub.messages)
	}
}

func TestClientGenerateOmitsEmptySystem(t *testing.T) {
	stub := &stubProvider{reply: "ok"}
	if _, err := NewClient(stub).Generate(context.Background(), "", "human"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.messages) != 1 {
		t.Errorf("expected only the human turn, got %d messages", len(stub.messages))
	}
}

func TestClientGenerateEmptyResponse(t *testing.T) {
	_, err := NewClient(&stubProvider{}).Generate(context.Background(), "s", "h")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestClientGeneratePropagatesError(t *testing.T) {
	boom := errors.New("quota exceeded")
	_, err := NewClient(&stubProvider{err: boom}).Generate(context.Background(), "s", "h")
	if !errors.Is(err, boom) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestClientGenerateJSONRequestsJSONObject(t *testing.T) {
	stub := &stubProvider{reply: `{"a":1}`}
	if _, err := NewClient(stub).GenerateJSON(context.Background(), "s", "h"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.format == nil || stub.format.Type != ResponseFormatJSONObject {
		t.Errorf("expected json_object format, got %+v", stub.format)
	}
}

func TestSplitSystem(t *testing.T) {
	system, turns := splitSystem([]ChatMessage{
		SystemMessage("first"),
		UserMessage("hi"),
		SystemMessage("second"),
		AssistantMessage("hello"),
	})
	if system != "second" {
		t.Errorf("expected last system message to win, got %q", system)
	}
	if len(turns) != 2 {
		t.Errorf("expected 2 conversational turns, got %d", len(turns))
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  ModelOpenAIEmbedding3Small,
			"data": []map[string]interface{}{{
				"object":    "embedding",
				"index":     0,
				"embedding": []float32{0.25, 0.5, 0.75},
			}},
			"usage": map[string]int{"prompt_tokens": 2, "total_tokens": 2},
		})
	}))
	defer server.Close()

	vec, err := NewOpenAIEmbedder("sk-test", server.URL, "").Embed(context.Background(), "quantum")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[1] != 0.5 {
		t.Errorf("unexpected vector %v", vec)
	}
}
