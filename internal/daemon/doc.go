// Package daemon coordinates the long-running menuvizd process.
//
// It wires configuration, the persistent store, application state and one
// live scan session into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes the session over a loopback
// HTTP API guarded by an optional bearer token, and keeps the camera device
// list current by watching udev hotplug events.
//
// Keep orchestration logic here: scan behavior lives in the session package
// while the daemon focuses on startup, shutdown, and request routing.
package daemon
