// Package menu defines the scanned item model and the formatter that turns
// extraction output into it.
//
// Collections are treated as values: MergeByID and MergeDish return a new
// slice with only the matching element replaced, so concurrent settlements
// never touch unrelated items. Image state changes go through ImageState
// constructors to keep a loading dish from also carrying a URL.
package menu
