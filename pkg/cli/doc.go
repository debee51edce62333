// Package cli holds the command-line plumbing shared by soundclass commands.
//
// This package includes:
//   - Configuration with named contexts, each selecting a model, its MFCC
//     parameters, the feature cache and a timeout
//   - Output formatting (YAML, JSON, plain text) with atomic file writes
//   - Terminal UI building blocks (Frame, Styles, LogWriter)
//
// Configuration is stored in ~/.giztoy/<app>/config.yaml, with contexts
// managed like kubectl contexts.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("soundclass")
//	ctx, err := cfg.ResolveContext("")
//	model := ctx.ModelPath(paths)
//
//	cli.Output(report, cli.OutputOptions{Format: cli.FormatJSON})
package cli
