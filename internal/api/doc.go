// Package api defines the wire-format types of the daemon HTTP API and the
// converters between them and the session model.
//
// # Requests
//
// Every request body is decoded into a struct carrying validator tags and
// checked with Validate before it reaches the session. Validation failures
// are services.ErrValidation and map to HTTP 400.
//
// # Responses
//
// DTOs use camelCase JSON tags for JavaScript consumers. Dishes embed the
// dietary verdict and favorite flag so a client can render badges without
// a second call. Timestamps use RFC3339 with milliseconds.
package api
