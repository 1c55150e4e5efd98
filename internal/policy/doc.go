// Package policy implements the splitting-size and chain-conversion policy
// engine.
//
// The engine walks a chain of dependent tasks, propagates cumulative filter
// efficiency backward through the InputTask links, computes per-task upper
// bounds on events per lumi section and events per job against the time and
// size budgets, and decides whether a chain must be held for operator
// intervention, whether its splitting parameters can be auto-fixed in place,
// and whether the whole chain qualifies for collapse into a single step
// chain.
//
// The engine is synchronous and performs no I/O of its own; the only
// blocking call is the dataset catalog lookup behind the MetadataSource
// interface. Its only side effect is the documented in-place mutation of
// splitting-entry parameters during validation.
//
// Outcomes are strictly three-way: a Decision, "no applicable bound" (an
// empty Decision), or an error. Diagnostic findings describing why a bound
// fired are carried on the Decision and never drive control flow.
package policy
