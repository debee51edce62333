package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

A context selects a model together with its feature and cache settings,
similar to kubectl's context management.

Configuration is stored in ~/.giztoy/soundclass/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name. An existing context with the
same name is replaced.

Example:
  soundclass config add-context default --model-file ~/models/urban.msgpack --cache
  soundclass config add-context onnx --model-file urban.onnx --timeout 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		model, err := cmd.Flags().GetString("model-file")
		if err != nil {
			return fmt.Errorf("failed to read 'model-file' flag: %w", err)
		}
		format, err := cmd.Flags().GetString("model-format")
		if err != nil {
			return fmt.Errorf("failed to read 'model-format' flag: %w", err)
		}
		cache, err := cmd.Flags().GetBool("cache")
		if err != nil {
			return fmt.Errorf("failed to read 'cache' flag: %w", err)
		}
		cacheDir, err := cmd.Flags().GetString("cache-dir")
		if err != nil {
			return fmt.Errorf("failed to read 'cache-dir' flag: %w", err)
		}
		cacheTTL, err := cmd.Flags().GetString("cache-ttl")
		if err != nil {
			return fmt.Errorf("failed to read 'cache-ttl' flag: %w", err)
		}
		logLevel, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return fmt.Errorf("failed to read 'log-level' flag: %w", err)
		}
		timeout, err := cmd.Flags().GetInt("timeout")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout' flag: %w", err)
		}

		ctx := &cli.Context{
			Model:       model,
			ModelFormat: format,
			LogLevel:    logLevel,
			Timeout:     timeout,
		}
		if cache || cacheDir != "" || cacheTTL != "" {
			ctx.Cache = &cli.CacheConfig{
				Enabled: true,
				Dir:     cacheDir,
				TTL:     cacheTTL,
			}
		}

		cfg := getConfig()
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.UseContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if len(cfg.Contexts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tMODEL\tCACHE")

		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			model := ctx.Model
			if model == "" {
				model = "(default)"
			}
			cache := "off"
			if ctx.Cache != nil && ctx.Cache.Enabled {
				cache = "on"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, model, cache)
		}

		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "Config file: %s\n", cfg.Path())
		fmt.Fprintf(out, "Current context: %s\n", cfg.CurrentContext)
		fmt.Fprintf(out, "Contexts: %d\n", len(cfg.Contexts))

		if len(cfg.Contexts) > 0 {
			fmt.Fprintln(out, "\nContext details:")
			for _, name := range cfg.ListContexts() {
				ctx := cfg.Contexts[name]
				fmt.Fprintf(out, "\n  %s:\n", name)
				fmt.Fprintf(out, "    Model: %s\n", ctx.ModelPath(globalPaths))
				if ctx.ModelFormat != "" {
					fmt.Fprintf(out, "    Model Format: %s\n", ctx.ModelFormat)
				}
				fc := ctx.FeatureConfig()
				fmt.Fprintf(out, "    Features: %d MFCC @ %d Hz (fft %d, hop %d, %d mels)\n",
					fc.NumCoeffs, fc.SampleRate, fc.FFTSize, fc.HopSize, fc.NumMels)
				if ctx.Cache != nil && ctx.Cache.Enabled {
					dir := ctx.Cache.Dir
					if dir == "" {
						dir = globalPaths.CachePath("features")
					}
					fmt.Fprintf(out, "    Cache: %s\n", dir)
					if ctx.Cache.TTL != "" {
						fmt.Fprintf(out, "    Cache TTL: %s\n", ctx.Cache.TTL)
					}
				}
				if ctx.LogLevel != "" {
					fmt.Fprintf(out, "    Log Level: %s\n", ctx.LogLevel)
				}
				fmt.Fprintf(out, "    Timeout: %s\n", cli.FormatDuration(ctx.TimeoutDuration()))
			}
		}

		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), getConfig().Path())
	},
}

func init() {
	// add-context flags
	configAddContextCmd.Flags().String("model-file", "", "Model file (default ~/.giztoy/soundclass/model.msgpack)")
	configAddContextCmd.Flags().String("model-format", "", "Model format: msgpack, json, yaml or onnx (default from extension)")
	configAddContextCmd.Flags().Bool("cache", false, "Enable the feature cache")
	configAddContextCmd.Flags().String("cache-dir", "", `Feature cache directory, or "memory"`)
	configAddContextCmd.Flags().String("cache-ttl", "", "Feature cache entry lifetime, e.g. 720h")
	configAddContextCmd.Flags().String("log-level", "", "Log level: debug, info, warn or error")
	configAddContextCmd.Flags().Int("timeout", 0, "Prediction timeout in seconds (default 60)")

	// Add subcommands
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configPathCmd)
}
