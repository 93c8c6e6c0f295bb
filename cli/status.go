package cli

import (
	"github.com/afkcompanion/afkcli/commands"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show companion state",
	Long:  `Shows whether the companion is active, the countdown to the next action and the current settings. Uses the running server when there is one.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		return printResponse(commands.StatusCommand(cmd.Context(), backend))
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Start or stop the companion on the running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := remoteBackend(cmd.Context())
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}

		return printResponse(commands.ToggleCommand(cmd.Context(), backend))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toggleCmd)
}
