// Package main provides the soundclass CLI tool.
//
// Usage:
//
//	soundclass [flags] <command> [args]
//
// Commands:
//
//	predict   - Classify an audio file
//	features  - Print the MFCC feature vector of an audio file
//	model     - Inspect, install or convert models
//	labels    - List the class labels
//	cache     - Manage the feature cache
//	config    - Configuration management
//	ui        - Interactive terminal UI
//	version   - Print version information
//
// Configuration:
//
//	The CLI stores configuration in ~/.giztoy/soundclass/
//	Use 'soundclass config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/soundclass/cmd/soundclass/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
