// Package services defines shared utilities consumed by the scan orchestrator
// and the backend integrations.
//
// Key responsibilities:
//   - Context helpers that stamp scan IDs, item IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (whole-scan versus single-item) and logged with a hint.
//
// Use these helpers when wiring new backend calls so error handling and
// observability stay uniform.
package services
