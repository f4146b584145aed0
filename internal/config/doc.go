// Package config loads, validates, and normalizes recut configuration.
//
// Configuration comes from a TOML file (default ~/.config/recut/config.toml,
// falling back to ./recut.toml) layered over built-in defaults. All path
// fields are tilde-expanded and absolutized during load, secrets fall back to
// environment variables, and Validate rejects configurations the engine
// cannot run with. CreateSample writes the embedded annotated sample file.
package config
