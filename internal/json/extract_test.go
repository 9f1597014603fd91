package json

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	Sufficient bool     `json:"sufficient"`
	Questions  []string `json:"questions"`
}

func TestExtractJSONFromResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"pure", `{"sufficient": true, "questions": ["a"]}`},
		{"prose before", `Here you go: {"sufficient": true, "questions": ["a"]}`},
		{"prose after", `{"sufficient": true, "questions": ["a"]} Hope that helps.`},
		{"fenced with language", "```json\n{\"sufficient\": true, \"questions\": [\"a\"]}\n```"},
		{"fenced bare", "```\n{\"sufficient\": true, \"questions\": [\"a\"]}\n```"},
		{"brace inside string", `Note {not json} then {"sufficient": true, "questions": ["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONFromResponse[verdict](tt.response)
			require.NoError(t, err)
			assert.Equal(t, verdict{Sufficient: true, Questions: []string{"a"}}, got)
		})
	}
}

func TestExtractJSON_Array(t *testing.T) {
	raw, err := ExtractJSON(`questions: ["one", "two"] end`)
	require.NoError(t, err)
	assert.Equal(t, `["one", "two"]`, raw)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON("nothing structured " + strings.Repeat("x", 200))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoJSON))
	assert.Contains(t, err.Error(), "...")
}

func TestExtractInto_TypeMismatch(t *testing.T) {
	var v verdict
	err := ExtractInto(`{"sufficient": "maybe"}`, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal JSON")
}
