package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ShMcK/crewai-go/agent"
	"github.com/ShMcK/crewai-go/logging"
)

// ExecutorOptions configures the default Executor.
type ExecutorOptions struct {
	Logger logging.Logger
}

// Executor is the default task executor. It drives the agent, applies the
// optional output contract, persists the output file if configured and
// mutates the task record in place.
//
// Failure signaling is status-based: an agent failure leaves the task FAILED
// with the execution error recorded and Execute returns nil. A raised error
// is reserved for unrecoverable conditions (nil task or agent, cancelled
// context), after which the task state is undefined for this attempt.
type Executor struct {
	logger logging.Logger
}

// NewExecutor creates an Executor with optional overrides.
func NewExecutor(optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{logger: opts.Logger}
}

// Execute runs one attempt of the task with the given agent. When it returns
// normally the task is in COMPLETED or FAILED status.
func (e *Executor) Execute(ctx context.Context, t *Task, ag *agent.Agent) error {
	if t == nil {
		return errors.New("nil task")
	}
	if ag == nil {
		return fmt.Errorf("task %s: nil agent", t.ID())
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// A retry re-enters IN_PROGRESS on the same record with prior attempt
	// state cleared; the log survives across attempts.
	t.Status = StatusInProgress
	t.StartedAt = time.Now()
	t.ExecutionError = ""
	t.ParsedOutput = nil
	t.Violations = nil
	t.AppendLog("started by agent %q", ag.Role())

	start := time.Now()
	output, err := ag.ExecuteTask(ctx, e.describe(t), t.ContextText())
	if err != nil {
		t.Status = StatusFailed
		t.ExecutionError = err.Error()
		t.CompletedAt = time.Now()
		t.AppendLog("failed: %v", err)
		e.logger.Error("task execution failed",
			"task_id", t.ID(), "agent_role", ag.Role(), "duration", time.Since(start), "error", err)
		return nil
	}

	t.Output = output
	e.applyContract(t)
	e.persistOutput(t)

	t.Status = StatusCompleted
	t.CompletedAt = time.Now()
	t.AppendLog("completed")
	e.logger.Info("task execution completed",
		"task_id", t.ID(), "agent_role", ag.Role(), "duration", time.Since(start))

	return nil
}

// describe renders the full work order handed to the agent.
func (e *Executor) describe(t *Task) string {
	if t.ExpectedOutput == "" {
		return t.Description
	}
	return fmt.Sprintf("%s\n\nExpected output: %s", t.Description, t.ExpectedOutput)
}

// applyContract validates raw output against the task's contract, if any.
// A validation failure records the violations and leaves the raw output
// untouched; it does not fail the task.
func (e *Executor) applyContract(t *Task) {
	if t.Contract == nil {
		return
	}

	parsed, violations := t.Contract.SafeParse(t.Output)
	if len(violations) > 0 {
		t.Violations = violations
		t.AppendLog("output contract rejected the raw output (%d violations)", len(violations))
		e.logger.Warn("output contract violated", "task_id", t.ID(), "violations", len(violations))
		return
	}

	t.ParsedOutput = parsed
	t.AppendLog("output contract accepted the raw output")
}

// persistOutput writes the raw output to the task's output file, creating
// parent directories as needed. Persistence failures are logged, not fatal.
func (e *Executor) persistOutput(t *Task) {
	if t.OutputFile == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(t.OutputFile), 0o755); err != nil {
		t.AppendLog("output file not written: %v", err)
		e.logger.Warn("output persistence failed", "task_id", t.ID(), "error", err)
		return
	}
	if err := os.WriteFile(t.OutputFile, []byte(t.Output), 0o644); err != nil {
		t.AppendLog("output file not written: %v", err)
		e.logger.Warn("output persistence failed", "task_id", t.ID(), "error", err)
		return
	}
	t.AppendLog("output written to %s", t.OutputFile)
}
