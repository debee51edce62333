package commands

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/haivivi/soundclass/pkg/cli"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Classify files interactively",
	Long: `Open a terminal UI that classifies files as you enter their paths.

The model is loaded once. Logs are shown in the UI instead of stderr.`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logWriter := cli.NewLogWriter(maxLogLines)
		if err := setupLogging(logWriter); err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		m := NewUIModel(ctx, a.pipeline.Run, logWriter)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	},
}
