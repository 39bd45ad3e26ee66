// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer CrewLogger with contextual helpers
// (crew, component) and domain specific logging helpers for task execution,
// model calls and manager decisions.
package logging
