// Package history builds immutable scan snapshots and keeps them newest
// first.
package history
