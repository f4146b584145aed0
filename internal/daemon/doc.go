// Package daemon coordinates the long-running recut process.
//
// It wires configuration, the workflow engine, the director agent, and the
// job registry into a single lifecycle with flock-based locking to prevent
// multiple instances, and serves the HTTP API that exposes engine operations
// to external consumers. Stage runs accepted over the API execute in the
// background; the daemon tracks them so shutdown waits for in-flight
// generator work.
//
// Keep orchestration logic here: document mutation rules live in the engine
// while the daemon focuses on startup, shutdown, and transport.
package daemon
