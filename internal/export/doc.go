// Package export uploads scan history to S3 as a JSON document.
package export
