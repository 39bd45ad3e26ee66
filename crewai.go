// Package crewai provides a high-level façade over the crew orchestration
// engine enabling rapid construction of multi-agent task pipelines. Most
// applications interact with this package by:
//  1. Creating agents (agent.New) bound to a model (model/anthropic, model/openai)
//  2. Declaring tasks (task.New) with expected outputs and optional contracts
//  3. Assembling a crew via NewSequentialCrew or NewHierarchicalCrew and
//     calling Kickoff
//
// The façade delegates orchestration to the crew package while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger.
package crewai

import (
	"github.com/ShMcK/crewai-go/agent"
	"github.com/ShMcK/crewai-go/crew"
	"github.com/ShMcK/crewai-go/task"
)

// NewSequentialCrew assembles a crew that executes tasks in list order, each
// task resolved to its preassigned agent or the first agent in the list.
func NewSequentialCrew(agents []*agent.Agent, tasks []*task.Task, optFns ...func(o *crew.Options)) (*crew.Crew, error) {
	fns := append([]func(o *crew.Options){func(o *crew.Options) {
		o.Process = crew.Sequential
	}}, optFns...)
	return crew.New(agents, tasks, fns...)
}

// NewHierarchicalCrew assembles a crew driven by a manager: an *agent.Agent,
// a model.Model, or a crew.ModelProvider configuration.
func NewHierarchicalCrew(agents []*agent.Agent, tasks []*task.Task, manager any, optFns ...func(o *crew.Options)) (*crew.Crew, error) {
	fns := append([]func(o *crew.Options){func(o *crew.Options) {
		o.Process = crew.Hierarchical
		o.Manager = manager
	}}, optFns...)
	return crew.New(agents, tasks, fns...)
}
