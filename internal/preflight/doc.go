// Package preflight provides readiness checks for the backends and
// filesystem paths MenuViz depends on.
//
// The "menuviz doctor" command runs RunAll plus the command and camera
// probes and renders the results as a table. The daemon runs the directory
// checks at startup so a misconfigured data directory fails fast.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
