// Package ipc is the HTTP client the CLI uses to drive a running menuvizd.
//
// Every call carries the caller's context and the configured bearer token.
// Failed requests come back as *Error values that also match the services
// error markers, so commands can branch on errors.Is(err, services.ErrNotFound)
// the same way in-process callers do.
package ipc
