package crew

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShMcK/crewai-go/agent"
	"github.com/ShMcK/crewai-go/model"
	"github.com/ShMcK/crewai-go/task"
)

// repeatModel answers every request with the same text. Used to drive the
// loop into its iteration ceiling.
type repeatModel struct{ text string }

func (r *repeatModel) Generate(context.Context, model.Request) (*model.Response, error) {
	return &model.Response{Text: r.text, FinishReason: "stop"}, nil
}

func (r *repeatModel) Info() model.Info { return model.Info{Name: "repeat", Provider: "mock"} }

// failingModel errors on every call.
type failingModel struct{}

func (failingModel) Generate(context.Context, model.Request) (*model.Response, error) {
	return nil, errors.New("transport down")
}

func (failingModel) Info() model.Info { return model.Info{Name: "failing", Provider: "mock"} }

func delegation(taskID, agentID string) string {
	return fmt.Sprintf(`{"taskIdToDelegate": %q, "agentIdToAssign": %q}`, taskID, agentID)
}

func TestCrew_Hierarchical_DelegatesAllTasksThenSynthesizes(t *testing.T) {
	a, b := newTestAgents()
	t1 := task.New("research", "a fact")
	t2 := task.New("write", "an article")
	exec := &stubExecutor{}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(
		"Let me start with the research task.\n"+delegation(t1.ID(), a.ID()),
		"Now the writing.\n```json\n"+delegation(t2.ID(), b.ID())+"\n```",
		"Research says done:research, and the article reads done:write.",
	)

	c, err := New([]*agent.Agent{a, b}, []*task.Task{t1, t2}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	out, err := c.Kickoff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, c.Status())
	assert.Equal(t, 2, exec.calls)
	assert.Equal(t, task.StatusCompleted, t1.Status)
	assert.Equal(t, task.StatusCompleted, t2.Status)
	assert.Equal(t, "Research says done:research, and the article reads done:write.", out)
}

func TestCrew_Hierarchical_UnparseableResponseIsFatal(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText("I would rather deliberate some more.")

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background())
	require.Error(t, err)

	var parseErr *DecisionParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Raw, "deliberate")

	assert.Equal(t, StatusFailed, c.Status())
	assert.Equal(t, 0, exec.calls, "executor must not run for an unparseable decision")
	assert.Equal(t, err.Error(), c.Output())
}

func TestCrew_Hierarchical_UnknownAgentContinuesLoop(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(
		delegation(t1.ID(), "nobody-home"),
		delegation(t1.ID(), a.ID()),
		"the synthesis",
	)

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, c.Status())
	assert.Equal(t, 1, exec.calls, "rejected delegation must not reach the executor")
	assert.Equal(t, task.StatusCompleted, t1.Status)
}

func TestCrew_Hierarchical_UnknownTaskContinuesLoop(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(
		delegation("no-such-task", a.ID()),
		delegation(t1.ID(), a.ID()),
		"the synthesis",
	)

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, c.Status())
	assert.Equal(t, 1, exec.calls)
}

func TestCrew_Hierarchical_RetryRecordsLastAttempt(t *testing.T) {
	a, b := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{failures: map[string]int{t1.ID(): 1}}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(
		delegation(t1.ID(), a.ID()),
		delegation(t1.ID(), b.ID()),
		"the synthesis",
	)

	c, err := New([]*agent.Agent{a, b}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	c.status = StatusRunning
	attempts, err := c.runHierarchical(context.Background())
	require.NoError(t, err)

	info := attempts[t1.ID()]
	require.NotNil(t, info)
	assert.Equal(t, task.StatusCompleted, info.status)
	assert.Equal(t, 2, info.attempts)
	assert.Equal(t, b.ID(), info.agentID, "attempt metadata must come from the last try")
	assert.Equal(t, 1, info.iteration)
	assert.Empty(t, info.lastError)
	assert.Equal(t, task.StatusCompleted, t1.Status)
}

func TestCrew_Hierarchical_IterationCeilingDegrades(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{}

	mgr := &repeatModel{text: delegation(t1.ID(), "nobody-home")}

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = model.Model(mgr)
		o.Executor = exec
	})
	require.NoError(t, err)

	out, err := c.Kickoff(context.Background())
	require.NoError(t, err, "ceiling exit is degraded success, not failure")

	assert.Equal(t, StatusCompleted, c.Status())
	assert.Equal(t, 0, exec.calls)

	degraded, ok := out.(DegradedOutput)
	require.True(t, ok, "ceiling exit must produce a DegradedOutput, got %T", out)
	assert.Contains(t, degraded.Warning, "did not complete")
	require.Len(t, degraded.Unfinished, 1)
	assert.Equal(t, t1.ID(), degraded.Unfinished[0].TaskID)
	assert.Equal(t, task.StatusPending, degraded.Unfinished[0].Status)
}

func TestCrew_Hierarchical_EarlySentinelWithUnfinishedTasks(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(SentinelAllComplete)

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	out, err := c.Kickoff(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, c.Status())
	degraded, ok := out.(DegradedOutput)
	require.True(t, ok)
	require.Len(t, degraded.Unfinished, 1)
}

func TestCrew_Hierarchical_ManagerCallErrorIsFatal(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = model.Model(failingModel{})
		o.Executor = &stubExecutor{}
	})
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manager decision call")
	assert.Equal(t, StatusFailed, c.Status())
}

func TestCrew_Hierarchical_ExecutorErrorIsFatal(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{err: errors.New("context torn down")}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(delegation(t1.ID(), a.ID()))

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context torn down")
	assert.Equal(t, StatusFailed, c.Status())
}

func TestCrew_Hierarchical_ExtraContextReachesTask(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(
		fmt.Sprintf(`{"taskIdToDelegate": %q, "agentIdToAssign": %q, "additionalContextForAgent": "focus on 2024"}`, t1.ID(), a.ID()),
		"the synthesis",
	)

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background())
	require.NoError(t, err)
	assert.Contains(t, t1.Context, "focus on 2024")
}

func TestCrew_Hierarchical_FailurePromptCarriesLastError(t *testing.T) {
	a, _ := newTestAgents()
	t1 := task.New("research", "a fact")
	exec := &stubExecutor{failures: map[string]int{t1.ID(): 1}}

	mgr := model.NewMockModel("manager", "mock")
	mgr.QueueText(
		delegation(t1.ID(), a.ID()),
		delegation(t1.ID(), a.ID()),
		"the synthesis",
	)

	c, err := New([]*agent.Agent{a}, []*task.Task{t1}, func(o *Options) {
		o.Process = Hierarchical
		o.Manager = mgr
		o.Executor = exec
	})
	require.NoError(t, err)

	_, err = c.Kickoff(context.Background())
	require.NoError(t, err)

	reqs := mgr.Requests()
	require.GreaterOrEqual(t, len(reqs), 2)
	secondPrompt := reqs[1].Messages[len(reqs[1].Messages)-1].Text
	assert.Contains(t, secondPrompt, "agent gave up")
}
