// Package appstate is the application-state container: dietary preferences,
// scan history, favorites, target language and the last captured image.
//
// Load never fails. Missing or corrupt keys fall back to defaults with a
// warning, and every update persists only the key it changes.
package appstate
