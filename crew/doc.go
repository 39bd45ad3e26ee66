// Package crew implements the orchestration engine: the Crew entity owning
// agents, tasks and a process strategy, the sequential pipeline, the
// manager-mediated hierarchical delegation loop with its decision-protocol
// parser, and the final-summary synthesis step.
//
// A Crew executes on a single logical thread of control: every manager
// decision call and every task execution is awaited to completion before the
// next step begins, so no locking is needed. A Crew value is single-use; a
// second Kickoff on a running or terminal crew is a logged no-op.
package crew
