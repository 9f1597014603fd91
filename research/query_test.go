package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"short query still gets marker", "quantum computing 2025", "quantum computing 2025..."},
		{"surrounding whitespace trimmed", "  latest EU AI Act news \n", "latest EU AI Act news..."},
		{"exactly 380 characters", strings.Repeat("a", 380), strings.Repeat("a", 380) + "..."},
		{"longer than 380 characters", strings.Repeat("b", 500), strings.Repeat("b", 380) + "..."},
		{"multibyte characters counted once", strings.Repeat("é", 400), strings.Repeat("é", 380) + "..."},
		{"empty output", "", "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateQuery(tt.raw))
		})
	}
}

func TestQueryFormulator_Formulate(t *testing.T) {
	model := &scriptedModel{responses: []string{strings.Repeat("q", 381)}}
	f, err := NewQueryFormulator(model, WithClock(fixedClock))
	require.NoError(t, err)

	query, err := f.Formulate(context.Background(), "quantum computing 2025", "focus on hardware")
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("q", MaxQueryLength)+QueryMarker, query)
	require.Len(t, model.calls, 1)
	assert.Contains(t, model.calls[0].System, "Date: 2025-04-03")
	assert.Contains(t, model.calls[0].System, "2024-2025")
	assert.Contains(t, model.calls[0].Human, "Research Topic: quantum computing 2025")
	assert.Contains(t, model.calls[0].Human, "Additional Context: focus on hardware")
}

func TestQueryFormulator_ModelFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	f, err := NewQueryFormulator(&scriptedModel{errs: []error{boom}})
	require.NoError(t, err)

	_, err = f.Formulate(context.Background(), "topic", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestNewQueryFormulator_NilModel(t *testing.T) {
	_, err := NewQueryFormulator(nil)
	assert.ErrorIs(t, err, ErrNoLanguageModel)
}
