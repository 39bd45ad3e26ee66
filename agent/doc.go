// Package agent implements the worker side of a crew: a role-bound persona
// with a goal, a bound language model, optional tools and optional memory.
// An agent turns a task description into a text answer via ExecuteTask,
// performing zero or more tool round trips internally. The crew engine only
// consumes this single blocking operation.
package agent
