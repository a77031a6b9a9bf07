// Package logging assembles structured slog loggers and formatting helpers used
// across MenuViz.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// context helpers that tag log lines with scan ids, item ids and correlation
// ids. When a log directory is configured every record is also appended to
// menuviz.log as JSON. NewNop provides a logger for tests and wiring code that
// cannot fail.
package logging
