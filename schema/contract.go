package schema

import "encoding/json"

// Contract is the output-contract interface consumed by the task executor.
// SafeParse never returns a Go error: the raw output either parses into a
// validated value (violations nil) or it does not (value nil, violations
// non-empty). Absence of a contract on a task means raw output is used
// unvalidated.
type Contract interface {
	// SafeParse attempts to parse and validate raw task output.
	SafeParse(raw string) (any, []Violation)
}

// JSONContract validates raw output as a JSON object against a minimal
// JSON-Schema-like description (type/properties/required subset).
type JSONContract struct {
	schema map[string]any
}

// NewJSONContract creates a contract from a schema map.
func NewJSONContract(schema map[string]any) *JSONContract {
	return &JSONContract{schema: schema}
}

// NewJSONContractFromStruct derives the schema from a struct via reflection.
func NewJSONContractFromStruct(structType any) *JSONContract {
	return &JSONContract{schema: FromStruct(structType)}
}

// Schema returns the underlying schema map.
func (c *JSONContract) Schema() map[string]any { return c.schema }

// SafeParse implements Contract. The raw string must be a well-formed JSON
// object satisfying the schema; otherwise every collected violation is
// returned and the value is nil.
func (c *JSONContract) SafeParse(raw string) (any, []Violation) {
	var value map[string]any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, []Violation{{Path: "", Message: "output is not a JSON object: " + err.Error()}}
	}

	if violations := ValidateObject(value, c.schema); len(violations) > 0 {
		return nil, violations
	}

	return value, nil
}
