// Package memory provides the optional recall store agents consult before
// executing a task and write their answers back to afterwards. The in-memory
// implementation is suitable for tests and single-process runs; production
// deployments typically supply a semantic index behind the same interface.
package memory
