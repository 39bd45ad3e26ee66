// Package schema implements the output-contract and argument-validation
// subsystem. A Contract wraps a minimal JSON-Schema-like object description
// and offers SafeParse: given raw model output it either returns the parsed
// value or a structured list of violations, never an error the caller has to
// branch on. The same validation primitives back tool argument checking.
package schema
