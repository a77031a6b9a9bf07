// Package config loads, normalizes, and validates MenuViz configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MENUVIZ_LLM_API_KEY and OPENROUTER_API_KEY. The Config type centralizes every
// knob the daemon and CLI need, from the data directory that holds the
// persistent store to the dispatcher concurrency cap.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
