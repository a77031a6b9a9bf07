// Package cache implements the two-tier cache used for generated dish images
// and translations.
//
// Keys are derived from dish names with Normalize only. Two dishes that share
// a name but differ in description therefore share a cached asset; this reuse
// is intended.
package cache
