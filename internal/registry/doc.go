// Package registry maintains a SQLite index of jobs so list and status
// queries do not have to open every workflow document under the jobs
// directory.
//
// The index is a cache, never the source of truth: each row summarizes one
// job's document (shot count, per-stage completion counts, merge readiness)
// and is refreshed whenever the engine persists that document. Rescan rebuilds
// the whole index from the jobs directory, which makes it safe to delete the
// database at any time.
//
// Schema changes bump the version in schema.go; an index with a stale version
// is reported as a mismatch and the caller removes the database and rescans.
package registry
