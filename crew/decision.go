package crew

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SentinelAllComplete is the literal completion signal. A manager response
// containing it ends the delegation loop; the decision prompt instructs the
// manager to emit it verbatim once no work remains.
const SentinelAllComplete = "ALL_TASKS_COMPLETED"

// DecisionParseError is run-fatal: the manager response was neither the
// completion sentinel nor contained a well-formed decision object. Surfacing
// manager misbehavior is deliberate; looping silently would hide it.
type DecisionParseError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *DecisionParseError) Error() string {
	return fmt.Sprintf("manager response contained no parseable decision: %v", e.Err)
}

// Unwrap returns the underlying parse error.
func (e *DecisionParseError) Unwrap() error { return e.Err }

type decisionKind int

const (
	decisionDelegate decisionKind = iota
	decisionComplete
)

// decision is the tagged parse result of one manager response: either the
// completion sentinel or a delegation triple. Parse failure is reported as a
// *DecisionParseError so the caller decides policy, not the parser.
type decision struct {
	kind    decisionKind
	taskID  string
	agentID string
	extra   string
}

// decisionWire is the JSON object expected inside the manager response.
type decisionWire struct {
	TaskID  string `json:"taskIdToDelegate"`
	AgentID string `json:"agentIdToAssign"`
	Extra   string `json:"additionalContextForAgent"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseDecision extracts a structured decision from the manager's free-text
// response. The sentinel wins over any embedded JSON; otherwise the first
// JSON object is located (preferring a fenced code block, falling back to the
// first brace-delimited substring) and decoded. Explanatory prose around the
// object is tolerated; the object itself must be well-formed.
func parseDecision(raw string) (decision, error) {
	if strings.Contains(raw, SentinelAllComplete) {
		return decision{kind: decisionComplete}, nil
	}

	blob := extractJSONObject(raw)
	if blob == "" {
		return decision{}, &DecisionParseError{Raw: raw, Err: errors.New("no JSON object found")}
	}

	var wire decisionWire
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return decision{}, &DecisionParseError{Raw: raw, Err: err}
	}
	if wire.TaskID == "" || wire.AgentID == "" {
		return decision{}, &DecisionParseError{
			Raw: raw,
			Err: errors.New(`decision object must carry "taskIdToDelegate" and "agentIdToAssign"`),
		}
	}

	return decision{
		kind:    decisionDelegate,
		taskID:  wire.TaskID,
		agentID: wire.AgentID,
		extra:   wire.Extra,
	}, nil
}

// extractJSONObject returns the first JSON object embedded in text, or "".
// A fenced code block is preferred; otherwise the substring from the first
// opening brace to its matching close is taken, tracking string literals so
// braces inside them do not unbalance the scan.
func extractJSONObject(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	// Unbalanced braces; hand the tail to the JSON decoder for a precise error.
	return text[start:]
}
