package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONKeepsNumberLiterals(t *testing.T) {
	var obj map[string]any
	require.NoError(t, ParseJSON(`{"amount": 1.50, "order": 2}`+"\n", &obj))
	assert.Equal(t, json.Number("1.50"), obj["amount"])
	assert.Equal(t, json.Number("2"), obj["order"])
}

func TestParseJSONRejectsExtraData(t *testing.T) {
	var obj map[string]any
	assert.Error(t, ParseJSON(`{"a": 1} {"b": 2}`, &obj))
	assert.Error(t, ParseJSON(`{"a": 1} null`, &obj))
	assert.Error(t, ParseJSONBytes([]byte(`{"a": 1} trailing`), &obj))
}

func TestRepairJSON(t *testing.T) {
	var obj map[string]any
	require.NoError(t, ParseJSON(RepairJSON(`{recipeName: "Toast", steps: [1, 2,],}`), &obj))
	assert.Equal(t, "Toast", obj["recipeName"])
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONObject(`Sure! Here it is: {"a":1} Enjoy.`))
	assert.Equal(t, "no object", ExtractJSONObject("no object"))
}
