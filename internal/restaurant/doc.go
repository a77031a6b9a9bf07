// Package restaurant builds restaurant details for a scanned menu and can
// look up a short reputation report.
package restaurant
