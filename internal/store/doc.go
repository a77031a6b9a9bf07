// Package store is the persistent local key-value store shared by the CLI and
// the daemon.
//
// Values are opaque strings (JSON for structured state) kept in a single
// SQLite table. Every key belongs to a namespace by prefix: preferences,
// history, favorites, language, image cache and translation cache each own
// their own keys, and EvictOldest only ever touches the prefix it is given.
//
// A store opened with a quota refuses writes that would exceed it with
// ErrQuotaExceeded, leaving existing data intact. Callers decide whether to
// evict and retry.
package store
