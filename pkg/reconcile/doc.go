// Package reconcile makes the installed state match the declared state.
//
// A run has two steps. Compute diffs the declared packages against a single
// store snapshot and yields a Plan, one Task per exec name. The Engine then
// applies the plan in two phases: all removals first, so that a package whose
// bridge or input changed frees its name, then all installs and updates.
// Within a phase, pipelines for different exec names run concurrently up to
// the configured worker count.
//
// Each pipeline touches the filesystem before the store: a remove marks the
// row pending, runs the bridge (or the default remove), drops the link and
// only then deletes the row; an install runs the bridge, links the result and
// only then records it. An interrupted run therefore never leaves the store
// claiming something that is not on disk.
package reconcile
