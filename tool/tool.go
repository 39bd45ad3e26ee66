// Package tool implements the function / tool calling subsystem that lets
// agents invoke structured capabilities (APIs, computations, side-effects)
// with schema validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools can be registered with agents to enable function calling, allowing
// agents to perform actions beyond text generation such as API calls,
// calculations, or any other programmatic operations.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with structured arguments.
	// Arguments are parsed from JSON and validated against the tool's schema.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error represents errors that occur during tool execution.
type Error struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
	Details error  `json:"-"`       // Underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Details }
