// Package orchestrator wires the loader, builder and renderer pipeline behind
// a single entry point shared by the console server and the CLI.
package orchestrator
