// Package main hosts the recut CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into engine
// calls against the on-disk job library: job creation, edit operations, stage
// runs, merges, registry refreshes, and configuration scaffolding. Commands
// open the engine directly rather than proxying through the daemon; the
// per-job file lock keeps concurrent CLI and daemon access safe, and only
// `recut status` talks to the daemon's HTTP API.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the document rules live in
// the engine.
package main
