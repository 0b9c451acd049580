package parser

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const breadJSON = `{"recipeName":"Bread","description":"Basic loaf","servings":"1 loaf","ingredients":[{"name":"flour","amount":"500","unit":"g"}],"steps":[{"order":1,"title":"Mix","description":"Mix it","duration_minutes":10}]}`

func TestSanitizeAndParseFenceIdempotence(t *testing.T) {
	plain, err := SanitizeAndParse(breadJSON)
	require.NoError(t, err)

	for _, wrapped := range []string{
		"```json\n" + breadJSON + "\n```",
		"```\n" + breadJSON + "\n```",
		"  ```JSON\r\n" + breadJSON + "\r\n```  ",
		"Here is your recipe:\n" + breadJSON + "\nEnjoy!",
	} {
		got, err := SanitizeAndParse(wrapped)
		require.NoError(t, err, wrapped)
		if diff := cmp.Diff(plain, got); diff != "" {
			t.Errorf("SanitizeAndParse(%q) mismatch (-plain +wrapped):\n%s", wrapped, diff)
		}
	}

	assert.Equal(t, "Bread", plain.RecipeName)
	assert.Len(t, plain.Ingredients, 1)
	assert.Len(t, plain.Steps, 1)
}

func TestSanitizeAndParseNotARecipe(t *testing.T) {
	for _, raw := range []string{
		`{"error":"not_a_recipe","message":"x"}`,
		"```json\n{\"error\":\"not_a_recipe\",\"message\":\"x\"}\n```",
	} {
		_, err := SanitizeAndParse(raw)
		var pe *Error
		require.True(t, errors.As(err, &pe), raw)
		assert.Equal(t, CodeNotARecipe, pe.Code)
		assert.False(t, pe.Retryable)
		assert.Equal(t, "x", pe.Message)
	}

	_, err := SanitizeAndParse(`{"error":"not_a_recipe"}`)
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, msgNotARecipe, pe.Message)
}

func TestSanitizeAndParseInvalidJSON(t *testing.T) {
	for _, raw := range []string{
		"```json\n{\"recipeName\":\"X\"\n```",
		"",
		"I'm sorry, I can't help with that.",
		`["not", "an", "object"]`,
	} {
		_, err := SanitizeAndParse(raw)
		var pe *Error
		require.True(t, errors.As(err, &pe), raw)
		assert.Equal(t, CodeParseFailure, pe.Code, raw)
		assert.True(t, pe.Retryable, raw)
	}
}

func TestSanitizeAndParseRepairsTrailingCommas(t *testing.T) {
	raw := `{"recipeName":"Bread","ingredients":[],"steps":[{"title":"Mix",},],}`
	got, err := SanitizeAndParse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Bread", got.RecipeName)
	assert.Len(t, got.Steps, 1)
}

func TestSanitizeAndParseValidationErrors(t *testing.T) {
	_, err := SanitizeAndParse(`{"recipeName":"  ","ingredients":"flour","description":"x"}`)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CodeParseFailure, pe.Code)
	assert.True(t, pe.Retryable)
	assert.Contains(t, pe.Message, "recipeName, ingredients, steps")

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	want := ValidationErrors{
		{Field: "recipeName", Problem: "is empty"},
		{Field: "ingredients", Problem: "must be an array, got string"},
		{Field: "steps", Problem: "is missing"},
	}
	if diff := cmp.Diff(want, verrs); diff != "" {
		t.Errorf("validation errors mismatch (-want +got):\n%s", diff)
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```": "{}",
		"```\n{}```":       "{}",
		"{}":               "{}",
		"  {}  ":           "{}",
		"```js {}```":      "{}",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripFences(in), in)
	}
}
