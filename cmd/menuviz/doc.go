// Package main hosts the MenuViz CLI entrypoint and command graph.
//
// Most commands are thin HTTP calls against a running menuvizd: scanning a
// menu photo, browsing the extracted dishes, translating, generating recipes,
// chatting with the concierge, and splitting the bill. Configuration
// scaffolding, the local cache, history export and the doctor checks work
// directly against the config and store so they keep working while the
// daemon is down.
package main
