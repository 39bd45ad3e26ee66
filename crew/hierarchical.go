package crew

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShMcK/crewai-go/task"
)

// iterationHeadroom is added to the task count to form the hard iteration
// ceiling: generous enough for re-delegations, small enough to guarantee
// termination against a non-converging manager.
const iterationHeadroom = 10

// taskAttempt is the loop-local bookkeeping for one task: last-known status,
// last error text, last assigned agent, the iteration of the last attempt and
// an attempt counter. It lives only for the duration of one run and is never
// persisted on the task record.
type taskAttempt struct {
	status    task.Status
	lastError string
	agentID   string
	iteration int
	attempts  int
}

// runHierarchical drives the manager decision loop. Each iteration asks the
// manager what to do next, parses its free-text answer into a decision,
// dispatches the delegated task and records the outcome for the next round's
// context. The loop exits on the completion sentinel, on every task reaching
// COMPLETED, or on the iteration ceiling.
//
// Error policy mirrors the run-level taxonomy: an unparseable manager
// response or a raised executor error aborts the run; an unknown delegated
// task or agent id and individual task failures are recorded and the loop
// continues. Ending with unfinished tasks is degraded success, not failure.
func (c *Crew) runHierarchical(ctx context.Context) (map[string]*taskAttempt, error) {
	maxIterations := len(c.tasks) + iterationHeadroom
	attempts := make(map[string]*taskAttempt)

	for iteration := 0; iteration < maxIterations; iteration++ {
		pending := c.incompleteTasks()
		if len(pending) == 0 {
			break
		}

		raw, err := c.manager.respond(ctx, c.buildDecisionPrompt(pending, attempts))
		if err != nil {
			return attempts, fmt.Errorf("manager decision call: %w", err)
		}

		dec, err := parseDecision(raw)
		if err != nil {
			return attempts, err
		}
		if dec.kind == decisionComplete {
			c.logger.Info("manager signaled completion", "crew_id", c.id, "iteration", iteration)
			break
		}

		t := findPendingTask(pending, dec.taskID)
		ag := c.agentByID(dec.agentID)
		if t == nil || ag == nil {
			c.recordRejectedDecision(attempts, dec, t == nil, iteration)
			continue
		}
		c.logger.Debug("manager delegated task",
			"crew_id", c.id, "iteration", iteration, "task_id", t.ID(), "agent_role", ag.Role())

		t.AppendContext(dec.extra)

		if err := c.executor.Execute(ctx, t, ag); err != nil {
			return attempts, fmt.Errorf("task %s execution: %w", t.ID(), err)
		}

		a := ensureAttempt(attempts, t.ID())
		a.attempts++
		a.status = t.Status
		a.lastError = t.ExecutionError
		a.agentID = ag.ID()
		a.iteration = iteration

		c.recordTaskOutput(t)
		if t.Status != task.StatusCompleted {
			c.logger.Warn("delegated task failed, eligible for re-delegation",
				"crew_id", c.id, "task_id", t.ID(), "error", t.ExecutionError)
		}
	}

	if unfinished := c.incompleteTasks(); len(unfinished) > 0 {
		list := make([]UnfinishedTask, 0, len(unfinished))
		for _, t := range unfinished {
			list = append(list, UnfinishedTask{TaskID: t.ID(), Description: t.Description, Status: t.Status})
		}
		c.logger.Warn("run ended with unfinished tasks", "crew_id", c.id, "count", len(list))
		c.output = DegradedOutput{
			Output:     c.output,
			Warning:    fmt.Sprintf("%d of %d tasks did not complete within %d iterations", len(list), len(c.tasks), maxIterations),
			Unfinished: list,
		}
		return attempts, nil
	}

	c.synthesizeFinalOutput(ctx)
	return attempts, nil
}

// recordRejectedDecision logs a delegation naming an unknown task or agent
// and books a synthetic failure for the iteration. Not fatal: the failure
// text feeds the next decision prompt so the manager can correct itself,
// bounded by the iteration ceiling.
func (c *Crew) recordRejectedDecision(attempts map[string]*taskAttempt, dec decision, unknownTask bool, iteration int) {
	reason := fmt.Sprintf("delegated agent id %q is not a crew member", dec.agentID)
	if unknownTask {
		reason = fmt.Sprintf("delegated task id %q is not among the incomplete tasks", dec.taskID)
	}
	c.logger.Warn("manager decision rejected",
		"crew_id", c.id, "iteration", iteration, "task_id", dec.taskID, "agent_id", dec.agentID, "reason", reason)

	a := ensureAttempt(attempts, dec.taskID)
	a.attempts++
	a.status = task.StatusFailed
	a.lastError = reason
	a.agentID = dec.agentID
	a.iteration = iteration
}

// incompleteTasks returns every task not yet COMPLETED, in declaration order.
func (c *Crew) incompleteTasks() []*task.Task {
	var pending []*task.Task
	for _, t := range c.tasks {
		if t.Status != task.StatusCompleted {
			pending = append(pending, t)
		}
	}
	return pending
}

// buildDecisionPrompt assembles the manager's view of the world: every agent
// with role, goal and tool names; every incomplete task with its description,
// expected output and last failure if any; and a summary of completed
// outputs. It closes with the wire-format instruction.
func (c *Crew) buildDecisionPrompt(pending []*task.Task, attempts map[string]*taskAttempt) string {
	var b strings.Builder

	b.WriteString("You are the manager of a crew of agents. Decide which task to delegate next and to which agent.\n")

	b.WriteString("\nAgents:\n")
	for _, ag := range c.agents {
		fmt.Fprintf(&b, "- id: %s | role: %s | goal: %s", ag.ID(), ag.Role(), ag.Goal())
		if names := ag.ToolNames(); len(names) > 0 {
			fmt.Fprintf(&b, " | tools: %s", strings.Join(names, ", "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nTasks still to complete:\n")
	for _, t := range pending {
		fmt.Fprintf(&b, "- id: %s | description: %s | expected output: %s\n", t.ID(), t.Description, t.ExpectedOutput)
		if a, ok := attempts[t.ID()]; ok && a.status == task.StatusFailed {
			fmt.Fprintf(&b, "  previous attempt by agent %s failed: %s\n", a.agentID, a.lastError)
		}
	}

	if completed := c.completedSummary(); completed != "" {
		b.WriteString("\nCompleted so far:\n")
		b.WriteString(completed)
	}

	fmt.Fprintf(&b,
		"\nRespond with one JSON object with string fields %q and %q, plus optional %q with extra instructions for the agent. "+
			"When every task is complete, respond with exactly %s instead.\n",
		"taskIdToDelegate", "agentIdToAssign", "additionalContextForAgent", SentinelAllComplete)

	return b.String()
}

func (c *Crew) completedSummary() string {
	var b strings.Builder
	for _, t := range c.tasks {
		if t.Status != task.StatusCompleted {
			continue
		}
		if out, ok := c.tasksOutput[t.ID()]; ok {
			fmt.Fprintf(&b, "- %s: %s\n", t.Description, truncate(out.Raw, 300))
		}
	}
	return b.String()
}

func findPendingTask(pending []*task.Task, id string) *task.Task {
	for _, t := range pending {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

func ensureAttempt(attempts map[string]*taskAttempt, taskID string) *taskAttempt {
	a, ok := attempts[taskID]
	if !ok {
		a = &taskAttempt{}
		attempts[taskID] = a
	}
	return a
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
