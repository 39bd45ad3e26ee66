package crew

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ShMcK/crewai-go/agent"
	"github.com/ShMcK/crewai-go/internal/util"
	"github.com/ShMcK/crewai-go/logging"
	"github.com/ShMcK/crewai-go/schema"
	"github.com/ShMcK/crewai-go/task"
)

// Process selects the execution strategy for a crew.
type Process string

const (
	// Sequential executes tasks in list order, each feeding the next.
	Sequential Process = "sequential"
	// Hierarchical lets a manager decide delegation order, retries included.
	Hierarchical Process = "hierarchical"
)

// Status represents the lifecycle state of a crew. Transitions are monotonic:
// PENDING -> RUNNING -> {COMPLETED, FAILED}.
type Status string

const (
	// StatusPending marks a crew that has not run yet.
	StatusPending Status = "PENDING"
	// StatusRunning marks a crew currently executing.
	StatusRunning Status = "RUNNING"
	// StatusCompleted marks a crew that finished, possibly degraded.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed marks a crew aborted by a run-fatal error.
	StatusFailed Status = "FAILED"
)

// Construction errors.
var (
	// ErrNoAgents is returned when a crew is built without agents.
	ErrNoAgents = errors.New("crew requires at least one agent")
	// ErrNoTasks is returned when a crew is built without tasks.
	ErrNoTasks = errors.New("crew requires at least one task")
)

// TaskExecutor is the execution contract consumed by the engine. It must
// leave the task in COMPLETED or FAILED when it returns normally and may
// return an error only for truly unrecoverable conditions.
type TaskExecutor interface {
	Execute(ctx context.Context, t *task.Task, ag *agent.Agent) error
}

// TaskOutput is the per-task output detail recorded by the crew after each
// completed or failed execution.
type TaskOutput struct {
	TaskID     string             `json:"task_id"`
	Raw        string             `json:"raw"`
	Parsed     any                `json:"parsed,omitempty"`
	Violations []schema.Violation `json:"violations,omitempty"`
	Error      string             `json:"error,omitempty"`
	Logs       []string           `json:"logs,omitempty"`
}

// UnfinishedTask identifies a task the hierarchical loop left incomplete.
type UnfinishedTask struct {
	TaskID      string      `json:"task_id"`
	Description string      `json:"description"`
	Status      task.Status `json:"status"`
}

// DegradedOutput is the single degraded-success output shape. It wraps the
// provisional output with a warning whenever the run completed but something
// fell short: the iteration ceiling was hit, the manager signaled completion
// with tasks unfinished, no outputs were summarizable, or the synthesis call
// itself failed. Callers distinguish degraded completion from fatal failure
// by the crew status plus this shape.
type DegradedOutput struct {
	Output     any              `json:"output"`
	Warning    string           `json:"warning"`
	Unfinished []UnfinishedTask `json:"unfinished,omitempty"`
}

// TaskFailedError aborts a sequential run, carrying the failing task's
// identity and the executor's error detail.
type TaskFailedError struct {
	TaskID string
	Detail string
}

// Error implements the error interface.
func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Detail)
}

// Options configures crew construction.
type Options struct {
	// Process selects the execution strategy. Defaults to Sequential.
	Process Process
	// Manager is required for Hierarchical. It must be exactly one of
	// *agent.Agent, model.Model or ModelProvider; any other shape is a
	// construction-time error.
	Manager any
	// Objective is free text used only in the final-summary prompt.
	Objective string
	// Inputs are rendered into task descriptions and expected outputs via
	// Go template placeholders at construction time.
	Inputs map[string]any
	// Executor overrides the default task executor. Used mostly in tests.
	Executor TaskExecutor
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Crew is the orchestrated unit comprising agents, tasks and a process
// strategy. It is mutated only by the single control-flow thread driving a
// run and acts as a single-use guard against duplicate runs.
type Crew struct {
	id        string
	agents    []*agent.Agent
	tasks     []*task.Task
	process   Process
	manager   *manager
	objective string
	executor  TaskExecutor
	logger    logging.Logger

	status      Status
	output      any
	tasksOutput map[string]TaskOutput
}

// New builds a crew, validating membership and the manager binding up front:
// at least one agent, at least one task, every preassigned task agent a crew
// member, and (for Hierarchical) a resolvable manager. All violations are
// construction-time errors; nothing is deferred to run time.
func New(agents []*agent.Agent, tasks []*task.Task, optFns ...func(o *Options)) (*Crew, error) {
	opts := Options{
		Process: Sequential,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if opts.Process != Sequential && opts.Process != Hierarchical {
		return nil, fmt.Errorf("unknown process %q", opts.Process)
	}

	for _, t := range tasks {
		if t.Agent == nil {
			continue
		}
		if !containsAgent(agents, t.Agent) {
			return nil, fmt.Errorf("task %s is assigned to agent %q which is not a crew member", t.ID(), t.Agent.Role())
		}
	}

	var mgr *manager
	if opts.Process == Hierarchical {
		m, err := resolveManager(opts.Manager)
		if err != nil {
			return nil, err
		}
		mgr = m
	}

	if opts.Inputs != nil {
		if err := renderTaskInputs(tasks, opts.Inputs); err != nil {
			return nil, err
		}
	}

	executor := opts.Executor
	if executor == nil {
		executor = task.NewExecutor(func(o *task.ExecutorOptions) { o.Logger = opts.Logger })
	}

	return &Crew{
		id:          uuid.New().String(),
		agents:      agents,
		tasks:       tasks,
		process:     opts.Process,
		manager:     mgr,
		objective:   opts.Objective,
		executor:    executor,
		logger:      opts.Logger,
		status:      StatusPending,
		tasksOutput: make(map[string]TaskOutput),
	}, nil
}

// ID returns the crew's unique identifier.
func (c *Crew) ID() string { return c.id }

// Status returns the crew's lifecycle status.
func (c *Crew) Status() Status { return c.status }

// Output returns the aggregated crew output: the synthesis text, the last
// completed task's output, a DegradedOutput, or nil before completion.
func (c *Crew) Output() any { return c.output }

// TaskOutput returns the recorded output detail for a task.
func (c *Crew) TaskOutput(taskID string) (TaskOutput, bool) {
	out, ok := c.tasksOutput[taskID]
	return out, ok
}

// TasksOutput returns a copy of the per-task output detail map.
func (c *Crew) TasksOutput() map[string]TaskOutput {
	out := make(map[string]TaskOutput, len(c.tasksOutput))
	for k, v := range c.tasksOutput {
		out[k] = v
	}
	return out
}

// Kickoff runs the crew's process to completion and returns the aggregated
// output. A crew that is already running or terminal refuses a second run:
// the refusal is logged and the existing output returned without error.
func (c *Crew) Kickoff(ctx context.Context) (any, error) {
	if c.status != StatusPending {
		c.logger.Warn("kickoff refused: crew is not pending", "crew_id", c.id, "status", string(c.status))
		return c.output, nil
	}

	c.status = StatusRunning
	c.logger.Info("crew run started",
		"crew_id", c.id, "process", string(c.process), "agents", len(c.agents), "tasks", len(c.tasks))

	var err error
	switch c.process {
	case Hierarchical:
		_, err = c.runHierarchical(ctx)
	default:
		err = c.runSequential(ctx)
	}

	if err != nil {
		c.status = StatusFailed
		c.output = err.Error()
		c.logger.Error("crew run failed", "crew_id", c.id, "error", err)
		return nil, err
	}

	c.status = StatusCompleted
	c.logger.Info("crew run completed", "crew_id", c.id)
	return c.output, nil
}

// runSequential executes every task in list order. The executing agent is the
// task's preassigned agent, else the crew's first agent. The first failed
// task aborts the entire run.
func (c *Crew) runSequential(ctx context.Context) error {
	for _, t := range c.tasks {
		ag := t.Agent
		if ag == nil {
			ag = c.agents[0]
		}

		if err := c.executor.Execute(ctx, t, ag); err != nil {
			return fmt.Errorf("task %s execution: %w", t.ID(), err)
		}

		c.recordTaskOutput(t)

		if t.Status == task.StatusFailed {
			return &TaskFailedError{TaskID: t.ID(), Detail: t.ExecutionError}
		}
	}
	return nil
}

// recordTaskOutput copies the task's post-execution detail into the crew's
// output map and, on completion, promotes it to the provisional crew output
// (last-task-wins).
func (c *Crew) recordTaskOutput(t *task.Task) {
	c.tasksOutput[t.ID()] = TaskOutput{
		TaskID:     t.ID(),
		Raw:        t.Output,
		Parsed:     t.ParsedOutput,
		Violations: t.Violations,
		Error:      t.ExecutionError,
		Logs:       append([]string(nil), t.Logs...),
	}

	if t.Status != task.StatusCompleted {
		return
	}
	if t.ParsedOutput != nil {
		c.output = t.ParsedOutput
		return
	}
	c.output = t.Output
}

func (c *Crew) agentByID(id string) *agent.Agent {
	for _, ag := range c.agents {
		if ag.ID() == id {
			return ag
		}
	}
	return nil
}

func containsAgent(agents []*agent.Agent, target *agent.Agent) bool {
	for _, ag := range agents {
		if ag == target {
			return true
		}
	}
	return false
}

func renderTaskInputs(tasks []*task.Task, inputs map[string]any) error {
	for _, t := range tasks {
		desc, err := util.RenderTemplate(t.Description, inputs)
		if err != nil {
			return fmt.Errorf("task %s description template: %w", t.ID(), err)
		}
		expected, err := util.RenderTemplate(t.ExpectedOutput, inputs)
		if err != nil {
			return fmt.Errorf("task %s expected output template: %w", t.ID(), err)
		}
		t.Description = desc
		t.ExpectedOutput = expected
	}
	return nil
}
