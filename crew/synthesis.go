package crew

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// defaultObjective is used in the synthesis prompt when the crew was built
// without an explicit objective.
const defaultObjective = "Produce a single coherent answer that combines the results of all completed tasks."

// synthesizeFinalOutput asks the manager for one final free-text answer
// combining the successful task outputs, which becomes the crew output. It
// runs only after every task completed and at least one output was recorded.
// Nothing here can fail the crew: an empty filter result or a synthesis call
// error degrades the output instead.
func (c *Crew) synthesizeFinalOutput(ctx context.Context) {
	if len(c.tasksOutput) == 0 {
		return
	}

	entries := c.summarizableOutputs()
	if len(entries) == 0 {
		c.logger.Warn("no successful task outputs to summarize", "crew_id", c.id)
		c.output = DegradedOutput{Output: c.output, Warning: "no successful task outputs to summarize"}
		return
	}

	objective := c.objective
	if objective == "" {
		objective = defaultObjective
	}

	text, err := c.manager.respond(ctx, buildSynthesisPrompt(objective, entries))
	if err != nil {
		c.logger.Warn("final summary synthesis failed", "crew_id", c.id, "error", err)
		c.output = DegradedOutput{Output: c.output, Warning: "final summary failed: " + err.Error()}
		return
	}

	c.output = text
}

// summarizableOutputs filters the recorded outputs down to the ones worth
// summarizing: tasks whose detail carries an execution error or whose raw
// output looks like an error payload are excluded. Contract-validated values
// are preferred; outputs that failed their contract are included with an
// annotation rather than silently dropped.
func (c *Crew) summarizableOutputs() []string {
	var entries []string
	for _, t := range c.tasks {
		out, ok := c.tasksOutput[t.ID()]
		if !ok || out.Error != "" || looksLikeErrorPayload(out.Raw) {
			continue
		}

		switch {
		case out.Parsed != nil:
			value := out.Raw
			if data, err := json.Marshal(out.Parsed); err == nil {
				value = string(data)
			}
			entries = append(entries, fmt.Sprintf("%s: %s", t.Description, value))
		case len(out.Violations) > 0:
			entries = append(entries, fmt.Sprintf("%s (validation failed, raw value shown): %s", t.Description, out.Raw))
		default:
			entries = append(entries, fmt.Sprintf("%s: %s", t.Description, out.Raw))
		}
	}
	return entries
}

func buildSynthesisPrompt(objective string, entries []string) string {
	var b strings.Builder
	b.WriteString("Objective: ")
	b.WriteString(objective)
	b.WriteString("\n\nTask results:\n")
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e)
		b.WriteByte('\n')
	}
	b.WriteString("\nWrite the final answer.")
	return b.String()
}

// looksLikeErrorPayload reports whether raw output is structurally an error:
// a conventional "Error:" prefix or a JSON object carrying an "error" field.
func looksLikeErrorPayload(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "error:") {
		return true
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		if _, ok := obj["error"]; ok {
			return true
		}
	}
	return false
}
