// Package main provides the cantus CLI tool.
//
// Usage:
//
//	cantus [flags] <command> [args]
//
// Commands:
//
//	generate - Generate a melodic period and write LilyPond/MIDI output
//	modes    - List the supported modes and scales
package main

import (
	"fmt"
	"os"

	"github.com/cantus-labs/cantus-api/cmd/cantus/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
