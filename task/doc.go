// Package task defines the Task record — one declared unit of work with an
// expected output and mutable execution state — and the default Executor that
// drives an agent against it. A task is created once and never destroyed: a
// retried task is the same record re-entering IN_PROGRESS. All execution
// state (status, outputs, errors, logs) is mutated exclusively by the
// Executor during a single attempt.
package task
