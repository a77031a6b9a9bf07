// Package imagegen produces dish pictures through the Pollinations image
// backend and caches the resulting URLs per dish name.
package imagegen
