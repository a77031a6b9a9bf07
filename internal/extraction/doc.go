// Package extraction sends captured images to the vision model and decodes
// the menu or nutrition records it returns.
//
// Unsupported image types are rejected before any request is made. Any
// backend error or unparsable payload fails the whole scan; callers classify
// these as scan-scoped failures.
package extraction
