package commands

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/cli"
	"github.com/haivivi/soundclass/pkg/pipeline"
)

var predictYAML bool

var predictCmd = &cobra.Command{
	Use:   "predict <file>",
	Short: "Classify an audio file",
	Long: `Classify the dominant sound event in a WAV or MP3 file.

By default prints the predicted class followed by the percentage of every
class. Use --json or --yaml for a structured report.

Examples:
  soundclass predict siren.wav
  soundclass predict clip.mp3 --json
  soundclass -c onnx predict clip.wav --yaml -o result.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.pipeline.Run(commandContext(cmd), args[0])
		if err != nil {
			slog.Debug("predict failed", "path", args[0], "error", err)
			return errors.New(pipeline.Message(err))
		}
		printVerbose("request %s took %s", res.RequestID, cli.FormatDuration(res.Elapsed))

		format := outputFormat(predictYAML)
		if format == cli.FormatText {
			return cli.Output(res, cli.OutputOptions{Format: format, File: outputFile})
		}
		return cli.Output(res.Report(), cli.OutputOptions{Format: format, File: outputFile})
	},
}

func init() {
	predictCmd.Flags().BoolVar(&predictYAML, "yaml", false, "output a YAML report")
}
