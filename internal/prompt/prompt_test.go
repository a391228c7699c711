package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleOutput struct {
	Category string `json:"category" jsonschema:"enum=A,enum=B"`
	Summary  string `json:"summary"`
}

func TestBuildRendersSectionsInOrder(t *testing.T) {
	out, err := Build(Spec{
		Purpose:      "Classify.",
		Background:   "Home user.",
		Schema:       &sampleOutput{},
		Rules:        []string{"Be concise.", "  "},
		OutputFormat: "JSON only.",
	}, map[string]string{"description": "hi"})
	require.NoError(t, err)

	order := []string{"[PURPOSE]", "[BACKGROUND]", "[INPUT]", "[OUTPUT_SCHEMA]", "[RULES]", "[OUTPUT_FORMAT]"}
	last := -1
	for _, sec := range order {
		idx := strings.Index(out, sec)
		require.GreaterOrEqual(t, idx, 0, sec)
		assert.Greater(t, idx, last, sec)
		last = idx
	}
	assert.NotContains(t, out, "[LANGUAGE]")
	assert.NotContains(t, out, "[OUTPUT]")
	assert.Contains(t, out, `"description": "hi"`)
	assert.Contains(t, out, `"enum"`)
	assert.Equal(t, 1, strings.Count(out, "- Be concise."))
}

func TestBuildRequiresPurposeAndOutput(t *testing.T) {
	_, err := Build(Spec{Schema: &sampleOutput{}}, nil)
	assert.Error(t, err)
	_, err = Build(Spec{Purpose: "p"}, nil)
	assert.Error(t, err)
}

func TestDecodeStripsFences(t *testing.T) {
	var got sampleOutput
	require.NoError(t, Decode([]byte("```json\n{\"category\":\"A\",\"summary\":\"s\"}\n```"), &got))
	assert.Equal(t, sampleOutput{Category: "A", Summary: "s"}, got)
}

func TestDecodeEmpty(t *testing.T) {
	var got sampleOutput
	assert.ErrorIs(t, Decode([]byte("  "), &got), ErrEmptyResponse)
}

func TestDecodeQuotedPayload(t *testing.T) {
	var got sampleOutput
	require.NoError(t, Decode([]byte(`"{\"category\":\"B\",\"summary\":\"x\\u003ey\"}"`), &got))
	assert.Equal(t, "B", got.Category)
	assert.Equal(t, "x>y", got.Summary)
}

func TestDecodeInvalid(t *testing.T) {
	var got sampleOutput
	assert.Error(t, Decode([]byte("not json"), &got))
}
