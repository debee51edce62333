package commands

import (
	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/classifier"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the class labels in model output order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return outputResult(map[string][]string{
			"labels": classifier.UrbanSound6.Names(),
		}, outputFile, outputJSON)
	},
}
