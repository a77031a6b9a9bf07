// Package dietary holds dietary preferences and classifies dish tags as safe,
// unsafe or neutral against them.
package dietary
