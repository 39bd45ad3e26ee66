package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Violation describes a single validation failure at a path inside the value.
type Violation struct {
	Path    string `json:"path"`    // Field path that failed validation ("" for the root)
	Message string `json:"message"` // Human-readable error message
}

// Error renders the violation in "path: message" form.
func (v Violation) Error() string {
	if v.Path == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// FromStruct creates a JSON schema from a Go struct using reflection.
// This is a convenience for deriving contracts and tool parameter schemas
// from ordinary Go types.
func FromStruct(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}

	properties := make(map[string]any)
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				fieldName = parts[0]
			}
		}

		fieldSchema := map[string]any{
			"type": jsonType(field.Type),
		}

		if description := field.Tag.Get("description"); description != "" {
			fieldSchema["description"] = description
		}

		properties[fieldName] = fieldSchema

		if !hasOmitEmpty(field.Tag.Get("json")) && field.Type.Kind() != reflect.Ptr {
			required = append(required, fieldName)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// ValidateObject validates a decoded JSON object against a minimal schema,
// collecting every violation rather than stopping at the first.
func ValidateObject(value map[string]any, schema map[string]any) []Violation {
	var violations []Violation

	for _, fieldName := range requiredFields(schema) {
		if _, exists := value[fieldName]; !exists {
			violations = append(violations, Violation{
				Path:    fieldName,
				Message: "required field is missing",
			})
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for fieldName, fieldValue := range value {
		propSchema, exists := properties[fieldName]
		if !exists {
			continue // Extra fields are allowed
		}

		propMap, ok := propSchema.(map[string]any)
		if !ok {
			continue
		}

		expectedType, _ := propMap["type"].(string)
		if !isValidType(fieldValue, expectedType) {
			violations = append(violations, Violation{
				Path:    fieldName,
				Message: fmt.Sprintf("expected type %s, got %T", expectedType, fieldValue),
			})
		}
	}

	return violations
}

// ValidateArguments validates tool-call arguments against the tool's parameter
// schema. It returns the first violation as an error for uniform downstream
// handling, or nil if the arguments are acceptable.
func ValidateArguments(args map[string]any, schema map[string]any) error {
	violations := ValidateObject(args, schema)
	if len(violations) == 0 {
		return nil
	}
	return violations[0]
}

// requiredFields extracts the required-field list tolerating both []string and
// the []any produced by JSON round trips.
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		fields := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}

// jsonType returns the JSON schema type for a given Go type.
func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

// hasOmitEmpty checks if a JSON tag has the "omitempty" option.
func hasOmitEmpty(tag string) bool {
	parts := strings.Split(tag, ",")
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			return true
		}
	}
	return false
}

// isValidType checks if a value is valid according to the expected JSON schema type.
func isValidType(value any, expectedType string) bool {
	if value == nil {
		return true // nil is valid for any type
	}

	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON unmarshaling produces float64 for numbers
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true // Unknown types are assumed valid
	}
}
