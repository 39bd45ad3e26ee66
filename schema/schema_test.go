package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Query    string   `json:"query" description:"Search query"`
	Limit    int      `json:"limit,omitempty"`
	Strict   bool     `json:"strict"`
	Tags     []string `json:"tags,omitempty"`
	Internal string   `json:"-"`
	hidden   string
}

// hidden exercises the unexported-field skip without tripping vet.
func (s sampleArgs) Hidden() string { return s.hidden }

func TestFromStruct(t *testing.T) {
	schema := FromStruct(sampleArgs{})

	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 4)

	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])

	assert.Equal(t, map[string]any{"type": "integer"}, props["limit"])
	assert.Equal(t, map[string]any{"type": "boolean"}, props["strict"])
	assert.Equal(t, map[string]any{"type": "array"}, props["tags"])

	assert.NotContains(t, props, "Internal")
	assert.NotContains(t, props, "hidden")

	assert.ElementsMatch(t, []string{"query", "strict"}, schema["required"])
}

func TestFromStruct_PointerAndNonStruct(t *testing.T) {
	byPtr := FromStruct(&sampleArgs{})
	assert.Equal(t, "object", byPtr["type"])

	degenerate := FromStruct("not a struct")
	assert.Equal(t, "object", degenerate["type"])
	assert.Empty(t, degenerate["properties"])
}

func TestValidateObject_CollectsAllViolations(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"count": map[string]any{"type": "integer"},
		},
		"required": []string{"name", "count"},
	}

	violations := ValidateObject(map[string]any{"count": "three"}, schema)
	require.Len(t, violations, 2)

	paths := []string{violations[0].Path, violations[1].Path}
	assert.Contains(t, paths, "name")
	assert.Contains(t, paths, "count")
}

func TestValidateObject_ExtraFieldsAllowed(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}

	violations := ValidateObject(map[string]any{"name": "x", "surprise": 1}, schema)
	assert.Empty(t, violations)
}

func TestValidateObject_JSONRoundTrippedRequiredList(t *testing.T) {
	// required arrives as []any after a JSON round trip.
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []any{"name"},
	}

	violations := ValidateObject(map[string]any{}, schema)
	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Path)
}

func TestIsValidType(t *testing.T) {
	tests := []struct {
		value        any
		expectedType string
		want         bool
	}{
		{"x", "string", true},
		{1, "string", false},
		{float64(3), "integer", true},
		{float64(3.5), "integer", false},
		{float64(3.5), "number", true},
		{true, "boolean", true},
		{[]any{1}, "array", true},
		{map[string]any{}, "object", true},
		{nil, "string", true},
		{"anything", "unknown-type", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidType(tt.value, tt.expectedType),
			"value=%v type=%s", tt.value, tt.expectedType)
	}
}

func TestViolation_Error(t *testing.T) {
	assert.Equal(t, "boom", Violation{Message: "boom"}.Error())
	assert.Equal(t, "name: boom", Violation{Path: "name", Message: "boom"}.Error())
}

func TestJSONContract_SafeParse(t *testing.T) {
	contract := NewJSONContract(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	})

	value, violations := contract.SafeParse(`{"name": "go"}`)
	assert.Empty(t, violations)
	assert.Equal(t, map[string]any{"name": "go"}, value)

	value, violations = contract.SafeParse(`{"name": 42}`)
	assert.Nil(t, value)
	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Path)

	value, violations = contract.SafeParse("not json at all")
	assert.Nil(t, value)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "not a JSON object")
}

func TestNewJSONContractFromStruct(t *testing.T) {
	type report struct {
		Name string `json:"name"`
	}

	contract := NewJSONContractFromStruct(report{})
	_, violations := contract.SafeParse(`{}`)
	require.Len(t, violations, 1)
	assert.Equal(t, "name", violations[0].Path)
}

func TestValidateArguments_FirstViolationAsError(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "number"}},
		"required":   []string{"a"},
	}

	assert.NoError(t, ValidateArguments(map[string]any{"a": 1.5}, schema))

	err := ValidateArguments(map[string]any{}, schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required field is missing")
}
