// Package speech flattens results into spoken text, plays it through an
// external command, and buffers recognized speech as pending chat input.
package speech
