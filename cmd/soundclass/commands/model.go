package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/classifier"
	"github.com/haivivi/soundclass/pkg/cli"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect, install or convert models",
	Long: `Manage pretrained classifier models.

Native models are dense networks stored as msgpack, JSON or YAML
("soundclass-dense/v1"). ONNX models load when built with -tags onnx.

The default model is ~/.giztoy/soundclass/model.msgpack.`,
}

type modelReport struct {
	classifier.Info `yaml:",inline"`

	Size    string              `json:"size" yaml:"size"`
	Formats []classifier.Format `json:"available_formats" yaml:"available_formats"`
}

var modelInspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Describe a model",
	Long: `Load a model and print its format, input width, labels and layers.

Without an argument the model of the current context is inspected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			modelPath = args[0]
		}
		ctx, err := getContext()
		if err != nil {
			return err
		}
		c, err := loadClassifier(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		info := c.Info()
		st, err := os.Stat(info.Path)
		if err != nil {
			return err
		}
		return outputResult(modelReport{
			Info:    info,
			Size:    cli.FormatBytes(st.Size()),
			Formats: classifier.Formats(),
		}, outputFile, outputJSON)
	},
}

var modelInstallCmd = &cobra.Command{
	Use:   "install <file>",
	Short: "Validate a model and make it the default",
	Long: `Load the model to make sure it is usable, then copy it to
~/.giztoy/soundclass/model.msgpack. Non-msgpack native models are converted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		c, err := classifier.Load(src)
		if err != nil {
			return err
		}
		c.Close()

		format := classifier.FormatFromPath(src)
		if format == classifier.FormatONNX {
			return fmt.Errorf("onnx models are used in place; add a context instead:\n"+
				"  soundclass config add-context onnx --model-file %s", src)
		}
		data, err := convertModel(src, format, classifier.FormatMsgpack)
		if err != nil {
			return err
		}
		if err := globalPaths.EnsureAppDir(); err != nil {
			return err
		}
		dst := globalPaths.ModelFile()
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("failed to write model: %w", err)
		}
		cli.PrintSuccess("Model installed to %s", dst)
		return nil
	},
}

var modelConvertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a native model between msgpack, JSON and YAML",
	Long: `Convert a native dense model. Formats follow the file extensions.

Example:
  soundclass model convert urban.json urban.msgpack`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]
		data, err := convertModel(in, classifier.FormatFromPath(in), classifier.FormatFromPath(out))
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write model: %w", err)
		}
		cli.PrintSuccess("Wrote %s (%s)", out, cli.FormatBytes(int64(len(data))))
		return nil
	},
}

// convertModel re-encodes a native model, validating it on the way.
func convertModel(path string, from, to classifier.Format) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	spec, err := classifier.DecodeModelSpec(data, from)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return classifier.EncodeModelSpec(spec, to)
}

func init() {
	modelCmd.AddCommand(modelInspectCmd)
	modelCmd.AddCommand(modelInstallCmd)
	modelCmd.AddCommand(modelConvertCmd)
}
