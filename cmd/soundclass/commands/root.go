package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/cli"
	"github.com/haivivi/soundclass/pkg/kv"
)

const appName = "soundclass"

var (
	// Global flags
	cfgFile     string
	contextName string
	modelPath   string
	outputFile  string
	outputJSON  bool
	verbose     bool
	noCache     bool

	// Global configuration
	globalConfig *cli.Config
	globalPaths  *cli.Paths
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soundclass",
	Short: "Urban sound classifier",
	Long: `soundclass - classify the dominant sound event in an audio file.

Each file is decoded (WAV or MP3), resampled to 22.05 kHz and reduced to the
time-mean of 40 MFCCs, which a pretrained model maps to one of:
  children_playing, dog_barking, drilling, jackhammer, siren, street_music

Configuration is stored in ~/.giztoy/soundclass/ and supports multiple
contexts, e.g. one per model.

Examples:
  # Install a model as the default
  soundclass model install urban.msgpack

  # Classify a file
  soundclass predict street.wav

  # Machine-readable result
  soundclass predict street.wav --json | jq .label

  # Interactive
  soundclass ui
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(os.Stderr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.giztoy/soundclass/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&modelPath, "model", "m", "", "model file (overrides the context)")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the feature cache")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(modelCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
	globalPaths, err = cli.NewPaths(appName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing paths: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return cfg.ResolveContext(contextName)
}

// getModelPath returns the model file to load
func getModelPath(ctx *cli.Context) string {
	if modelPath != "" {
		return modelPath
	}
	return ctx.ModelPath(globalPaths)
}

// setupLogging installs the default slog handler. --verbose forces debug.
func setupLogging(w io.Writer) error {
	ctx, err := getContext()
	if err != nil {
		return err
	}
	level, err := cli.ParseLogLevel(ctx.LogLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
	return nil
}

// openCache opens the feature cache configured for ctx, or returns nil when
// caching is off.
func openCache(ctx *cli.Context) (kv.Store, error) {
	if noCache || ctx.Cache == nil || !ctx.Cache.Enabled {
		return nil, nil
	}
	if ctx.Cache.Dir == "memory" {
		return kv.NewMemory(), nil
	}
	dir := ctx.Cache.Dir
	if dir == "" {
		if err := globalPaths.EnsureCacheDir(); err != nil {
			return nil, err
		}
		dir = globalPaths.CachePath("features")
	}
	printVerbose("feature cache: %s", dir)
	return kv.NewBadger(kv.BadgerOptions{Dir: dir})
}

// outputResult outputs the result using cli package
func outputResult(result any, outputPath string, asJSON bool) error {
	format := cli.FormatYAML
	if asJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputPath,
	})
}

// outputFormat picks the format for commands with a plain text form.
func outputFormat(asYAML bool) cli.OutputFormat {
	switch {
	case outputJSON:
		return cli.FormatJSON
	case asYAML:
		return cli.FormatYAML
	}
	return cli.FormatText
}

// printVerbose prints verbose output if enabled
func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}

// commandContext returns cmd's context, or Background outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// withTimeout derives a context bounded by d from cmd's context.
func withTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(commandContext(cmd), d)
}
