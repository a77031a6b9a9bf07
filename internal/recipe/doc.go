// Package recipe generates home-cooking recipes for dishes.
package recipe
