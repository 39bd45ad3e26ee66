package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShMcK/crewai-go/agent"
	"github.com/ShMcK/crewai-go/schema"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	// StatusPending marks a task that has not started yet.
	StatusPending Status = "PENDING"
	// StatusInProgress marks a task currently being executed.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusCompleted marks a task that finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed marks a task whose last attempt failed.
	StatusFailed Status = "FAILED"
	// StatusSkipped marks a task deliberately left unexecuted.
	StatusSkipped Status = "SKIPPED"
)

// Options configures optional Task fields.
type Options struct {
	// Agent preassigns the executing agent. Must be a crew member.
	Agent *agent.Agent
	// Context is free-text context handed to the agent alongside the description.
	Context string
	// ContextTasks lists prior tasks whose outputs feed this task's context.
	ContextTasks []*Task
	// Contract is the optional output contract the raw output must satisfy.
	Contract schema.Contract
	// OutputFile persists the raw output to this path after execution.
	OutputFile string
}

// Task is one unit of declared work. Identity and declaration are fixed at
// construction; the execution-state fields are mutated in place by the
// Executor and read back by the crew engine.
type Task struct {
	id             string
	Description    string
	ExpectedOutput string
	Agent          *agent.Agent
	Context        string
	ContextTasks   []*Task
	Contract       schema.Contract
	OutputFile     string

	// Execution state, owned by the Executor during an attempt.
	Status         Status
	Output         string
	ParsedOutput   any
	Violations     []schema.Violation
	ExecutionError string
	Logs           []string
	StartedAt      time.Time
	CompletedAt    time.Time
}

// New creates a pending task from a description and an expected-output hint.
func New(description, expectedOutput string, optFns ...func(o *Options)) *Task {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Task{
		id:             uuid.New().String(),
		Description:    description,
		ExpectedOutput: expectedOutput,
		Agent:          opts.Agent,
		Context:        opts.Context,
		ContextTasks:   opts.ContextTasks,
		Contract:       opts.Contract,
		OutputFile:     opts.OutputFile,
		Status:         StatusPending,
	}
}

// ID returns the task's unique identifier.
func (t *Task) ID() string { return t.id }

// AppendLog records a timestamped entry on the task's append-only log.
func (t *Task) AppendLog(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.Logs = append(t.Logs, fmt.Sprintf("%s %s", time.Now().UTC().Format(time.RFC3339), msg))
}

// AppendContext joins extra instructions onto the task's context. Used by the
// hierarchical manager to pass per-delegation guidance to the agent.
func (t *Task) AppendContext(extra string) {
	if extra == "" {
		return
	}
	if t.Context == "" {
		t.Context = extra
		return
	}
	t.Context += "\n" + extra
}

// ContextText assembles the full context handed to the agent: the static
// context plus the outputs of any completed context tasks.
func (t *Task) ContextText() string {
	var parts []string
	if t.Context != "" {
		parts = append(parts, t.Context)
	}
	for _, ct := range t.ContextTasks {
		if ct.Status == StatusCompleted && ct.Output != "" {
			parts = append(parts, fmt.Sprintf("Output of %q:\n%s", ct.Description, ct.Output))
		}
	}
	return strings.Join(parts, "\n\n")
}
