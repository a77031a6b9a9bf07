// Package session owns the live scan: the screen state machine, the current
// item collection, and the wiring between extraction, the image dispatcher,
// translation, recipes, the concierge chat and persisted application state.
//
// Every mutation of the collection is an atomic replace-by-id through
// menu.MergeDish, so late completions from a discarded collection are no-ops.
package session
