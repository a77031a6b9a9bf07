// Package translate renders dish names into the user's language with
// pronunciation and cultural notes, and detects the language a menu is
// written in.
//
// Translations are cached per normalized dish name and target language in
// the persistent translation namespace.
package translate
