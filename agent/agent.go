package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShMcK/crewai-go/logging"
	"github.com/ShMcK/crewai-go/memory"
	"github.com/ShMcK/crewai-go/model"
	"github.com/ShMcK/crewai-go/tool"
)

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	Backstory         string
	Model             model.Model
	Tools             []tool.Tool
	Memory            memory.Store
	MaxToolRounds     int
	MemoryRecallLimit int
	Logger            logging.Logger
}

// Agent is a named persona with a goal, an optional bound language model,
// an optional tool set and optional memory. It executes one task at a time;
// the orchestration engine awaits each execution to completion.
type Agent struct {
	id            string
	role          string
	goal          string
	backstory     string
	llm           model.Model
	tools         []tool.Tool
	mem           memory.Store
	maxToolRounds int
	recallLimit   int
	logger        logging.Logger
}

// New creates an agent with the given role and goal.
//
// Defaults: no tools, no memory, 10 tool round trips per task, NoOp logging.
// A model must be bound (via Options.Model) before the agent can execute
// tasks; construction without one is allowed so crews can be assembled
// before transport configuration.
func New(role, goal string, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxToolRounds:     10,
		MemoryRecallLimit: 5,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Agent{
		id:            uuid.New().String(),
		role:          role,
		goal:          goal,
		backstory:     opts.Backstory,
		llm:           opts.Model,
		tools:         opts.Tools,
		mem:           opts.Memory,
		maxToolRounds: opts.MaxToolRounds,
		recallLimit:   opts.MemoryRecallLimit,
		logger:        opts.Logger,
	}
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.id }

// Role returns the agent's role.
func (a *Agent) Role() string { return a.role }

// Goal returns the agent's goal.
func (a *Agent) Goal() string { return a.goal }

// Backstory returns the agent's backstory, if any.
func (a *Agent) Backstory() string { return a.backstory }

// Model returns the bound language model, or nil.
func (a *Agent) Model() model.Model { return a.llm }

// ToolNames returns the names of the agent's tools in registration order.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.tools))
	for _, t := range a.tools {
		names = append(names, t.Name())
	}
	return names
}

// ExecuteTask turns a task description into a text answer.
//
// The agent builds a prompt from the description, the optional task context
// and any relevant memory, then drives its model through a bounded tool
// round-trip loop: tool calls returned by the model are validated, executed
// and fed back until the model produces a final text answer. The answer is
// written to memory when a store is configured.
//
// Failures (missing model, transport errors, exhausted tool rounds) surface
// as returned errors; the caller decides retry policy.
func (a *Agent) ExecuteTask(ctx context.Context, description, taskContext string) (string, error) {
	if a.llm == nil {
		return "", fmt.Errorf("agent %q has no model bound", a.role)
	}

	prompt := a.buildPrompt(description, taskContext)
	req := model.Request{
		Instructions: a.systemPrompt(),
		Messages:     []model.Message{model.UserMessage(prompt)},
		Tools:        a.toolDefinitions(),
	}

	for round := 0; ; round++ {
		start := time.Now()
		resp, err := a.llm.Generate(ctx, req)
		if err != nil {
			a.logger.Error("model call failed", "agent", a.role, "error", err)
			return "", fmt.Errorf("agent %q model call: %w", a.role, err)
		}
		a.logger.Debug("model call completed",
			"agent", a.role, "duration", time.Since(start), "tool_calls", len(resp.ToolCalls))

		if len(resp.ToolCalls) == 0 || len(a.tools) == 0 {
			a.remember(description, resp.Text)
			return resp.Text, nil
		}

		if round >= a.maxToolRounds {
			return "", fmt.Errorf("agent %q exceeded %d tool rounds", a.role, a.maxToolRounds)
		}

		req.Messages = append(req.Messages, model.Message{
			Role:      model.RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		req.Messages = append(req.Messages, a.runToolCalls(ctx, resp.ToolCalls))
	}
}

// runToolCalls executes every tool call in order and collects the results
// into a single tool message. Tool failures are fed back to the model as
// result text rather than aborting the task, so the model can recover.
func (a *Agent) runToolCalls(ctx context.Context, calls []model.ToolCall) model.Message {
	msg := model.Message{Role: model.RoleTool}

	for _, call := range calls {
		content := a.runToolCall(ctx, call)
		msg.ToolResults = append(msg.ToolResults, model.ToolResult{ID: call.ID, Content: content})
	}

	return msg
}

func (a *Agent) runToolCall(ctx context.Context, call model.ToolCall) string {
	t := a.findTool(call.Name)
	if t == nil {
		a.logger.Warn("unknown tool requested", "agent", a.role, "tool", call.Name)
		return fmt.Sprintf("Error: tool %q is not available", call.Name)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf("Error: invalid tool arguments: %v", err)
		}
	}

	start := time.Now()
	result, err := t.Call(ctx, args)
	if err != nil {
		a.logger.Warn("tool call failed", "agent", a.role, "tool", call.Name, "error", err)
		return fmt.Sprintf("Error: %v", err)
	}
	a.logger.Debug("tool call completed",
		"agent", a.role, "tool", call.Name, "duration_ms", time.Since(start).Milliseconds())

	return stringifyToolResult(result)
}

func (a *Agent) findTool(name string) tool.Tool {
	for _, t := range a.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) toolDefinitions() []model.ToolDefinition {
	if len(a.tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(a.tools))
	for _, t := range a.tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// systemPrompt renders the persona instructions sent with every model call.
func (a *Agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", a.role)
	fmt.Fprintf(&b, "Your goal: %s\n", a.goal)
	if a.backstory != "" {
		fmt.Fprintf(&b, "Backstory: %s\n", a.backstory)
	}
	b.WriteString("Complete the task you are given and reply with the final answer only.")
	return b.String()
}

func (a *Agent) buildPrompt(description, taskContext string) string {
	var b strings.Builder
	b.WriteString(description)

	if taskContext != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(taskContext)
	}

	if a.mem != nil {
		entries, err := a.mem.Recall(description, a.recallLimit)
		if err != nil {
			a.logger.Warn("memory recall failed", "agent", a.role, "error", err)
		} else if len(entries) > 0 {
			b.WriteString("\n\nRelevant memory:\n")
			for _, e := range entries {
				fmt.Fprintf(&b, "- %s\n", e.Content)
			}
		}
	}

	return b.String()
}

func (a *Agent) remember(description, answer string) {
	if a.mem == nil || answer == "" {
		return
	}
	if _, err := a.mem.Remember(answer, map[string]any{"task": description, "agent": a.role}); err != nil {
		a.logger.Warn("memory write failed", "agent", a.role, "error", err)
	}
}

func stringifyToolResult(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}
