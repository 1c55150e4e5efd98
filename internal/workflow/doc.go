// Package workflow provides read access to raw workflow request schemas.
//
// A request schema is a loosely typed document produced by the request
// manager: chain-level fields plus one sub-schema per task, keyed "Task1",
// "Task2", ... (or "Step1", ... for step chain requests). The chain length is
// schema-driven: tasks are discovered by filtering the schema keys on the
// chain prefix, never by consulting a fixed list.
//
// Task accessors return deep copies. Callers may freely mutate a returned
// Task (the bound calculator rescales SizePerEvent in place) without
// affecting the source schema.
package workflow
