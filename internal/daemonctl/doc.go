// Package daemonctl launches, probes and stops menuvizd on behalf of the CLI.
package daemonctl
