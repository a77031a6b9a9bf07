// Package language lists the supported translation targets and normalizes
// the language codes the model reports for detected menus.
package language
