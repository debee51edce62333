package commands

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/audio/mfcc"
	"github.com/haivivi/soundclass/pkg/pipeline"
)

type featuresReport struct {
	Path   string      `json:"path" yaml:"path"`
	Width  int         `json:"width" yaml:"width"`
	Config mfcc.Config `json:"config" yaml:"config"`
	Values []float32   `json:"values" yaml:"values"`
}

var featuresCmd = &cobra.Command{
	Use:   "features <file>",
	Short: "Print the MFCC feature vector of an audio file",
	Long: `Print the feature vector the classifier sees: the time-mean of each
MFCC coefficient. No model is needed.

Examples:
  soundclass features clip.wav
  soundclass features clip.wav --json | jq '.values[0]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		ext, cache, err := newExtractor(ctx)
		if err != nil {
			return err
		}
		if cache != nil {
			defer cache.Close()
		}

		c, cancel := withTimeout(cmd, ctx.TimeoutDuration())
		defer cancel()
		vec, err := ext.Extract(c, args[0])
		if err != nil {
			slog.Debug("features failed", "path", args[0], "error", err)
			return errors.New(pipeline.Message(err))
		}
		return outputResult(featuresReport{
			Path:   args[0],
			Width:  len(vec),
			Config: ext.Config(),
			Values: vec,
		}, outputFile, outputJSON)
	},
}
