// Package engine orchestrates the per-job remix workflow: bootstrap, edits
// with cascading invalidation, stage execution, disk reconciliation, and the
// final merge.
//
// Every operation takes an explicit job identifier; there is no ambient
// current job. Document access is serialized per job by an in-process mutex
// plus a lock file on the job directory, held across each read-modify-persist
// sequence but never across a generator call. Every load runs through the
// reconciler first, so callers always observe statuses that agree with the
// artifact files on disk.
package engine
