// Command cyberalchemy runs multi-agent conversations with a rolling, summarized context window.
//
// Usage:
//
//	# Serve the HTTP API
//	cyberalchemy serve --config config.yaml
//
//	# Chat in the terminal, resuming a conversation
//	cyberalchemy chat 3f2a...
//
//	# Manage agents and conversations
//	cyberalchemy agents create --name Poet --prompt "You write verse."
//	cyberalchemy conversations list
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
