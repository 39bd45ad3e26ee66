package crew

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_Sentinel(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare sentinel", SentinelAllComplete},
		{"sentinel in prose", "Great work everyone. ALL_TASKS_COMPLETED — wrapping up."},
		{"sentinel wins over JSON", SentinelAllComplete + ` {"taskIdToDelegate": "t1", "agentIdToAssign": "a1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := parseDecision(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, decisionComplete, dec.kind)
		})
	}
}

func TestParseDecision_Delegation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			"bare object",
			`{"taskIdToDelegate": "t1", "agentIdToAssign": "a1", "additionalContextForAgent": "be brief"}`,
		},
		{
			"fenced json block",
			"Thinking it through.\n```json\n{\"taskIdToDelegate\": \"t1\", \"agentIdToAssign\": \"a1\", \"additionalContextForAgent\": \"be brief\"}\n```\nThat is my call.",
		},
		{
			"fenced block without language tag",
			"```\n{\"taskIdToDelegate\": \"t1\", \"agentIdToAssign\": \"a1\", \"additionalContextForAgent\": \"be brief\"}\n```",
		},
		{
			"object embedded in prose",
			`I will assign it like so: {"taskIdToDelegate": "t1", "agentIdToAssign": "a1", "additionalContextForAgent": "be brief"} and we move on.`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := parseDecision(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, decisionDelegate, dec.kind)
			assert.Equal(t, "t1", dec.taskID)
			assert.Equal(t, "a1", dec.agentID)
			assert.Equal(t, "be brief", dec.extra)
		})
	}
}

func TestParseDecision_ExtraIsOptional(t *testing.T) {
	dec, err := parseDecision(`{"taskIdToDelegate": "t1", "agentIdToAssign": "a1"}`)
	require.NoError(t, err)
	assert.Empty(t, dec.extra)
}

func TestParseDecision_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no JSON at all", "Let me think about this for another round."},
		{"malformed object", `{"taskIdToDelegate": "t1",`},
		{"missing task id", `{"agentIdToAssign": "a1"}`},
		{"missing agent id", `{"taskIdToDelegate": "t1"}`},
		{"empty ids", `{"taskIdToDelegate": "", "agentIdToAssign": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDecision(tt.raw)
			require.Error(t, err)

			var parseErr *DecisionParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.raw, parseErr.Raw)
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"nothing", "no braces here", ""},
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"nested object", `before {"a": {"b": 2}} after`, `{"a": {"b": 2}}`},
		{"brace inside string", `{"a": "{not a brace}"}`, `{"a": "{not a brace}"}`},
		{"escaped quote inside string", `{"a": "he said \"{\" once"}`, `{"a": "he said \"{\" once"}`},
		{"fenced preferred over earlier brace", "{oops ```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"unbalanced returns tail", `text {"a": 1`, `{"a": 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONObject(tt.text))
		})
	}
}
