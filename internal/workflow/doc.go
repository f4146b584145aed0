// Package workflow defines the persisted job document and its storage layout.
//
// A job is one end-to-end remix task: a source video decomposed into an
// ordered list of shots, each carrying per-stage statuses, asset paths, and
// failure details. The document lives in workflow.json under the job
// directory and is the single source of truth for job state; the sqlite
// registry is only an index over it.
//
// The package owns the closed stage-status enumeration, lenient decoding with
// explicit defaults, the atomic save discipline, and the artifact path
// layout. It knows nothing about stage execution or reconciliation; that
// logic lives in the engine.
package workflow
