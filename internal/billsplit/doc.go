// Package billsplit parses menu prices and splits a bill across people.
//
// Split is a pure function of items, people and the tax and tip percentages;
// Bill is the editable wrapper the CLI and daemon drive.
package billsplit
