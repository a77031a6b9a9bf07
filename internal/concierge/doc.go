// Package concierge runs a menu-seeded chat about the dishes of one scan.
package concierge
