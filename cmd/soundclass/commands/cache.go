package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/cli"
	"github.com/haivivi/soundclass/pkg/features"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the feature cache",
	Long: `The feature cache stores computed feature vectors keyed by file content
and extraction parameters. Enable it per context:

  soundclass config add-context default --cache`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached feature vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		store, err := openCache(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("feature cache is not enabled for context %q", ctx.Name)
		}
		defer store.Close()

		if err := store.DeletePrefix(commandContext(cmd), features.CachePrefix()); err != nil {
			return err
		}
		cli.PrintSuccess("Feature cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}
