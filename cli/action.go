package cli

import (
	"github.com/afkcompanion/afkcli/commands"
	"github.com/spf13/cobra"
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Run actions by hand",
}

var actionOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Perform a single activity action now",
	Long:  `Runs one cursor round trip (and key tap) with the current settings. The action is not counted in statistics.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		return printResponse(commands.ActionOnceCommand(cmd.Context(), backend))
	},
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List achievements and whether they are unlocked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		return printResponse(commands.AchievementsCommand(cmd.Context(), backend))
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the key buttons that can be tapped after each action",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResponse(commands.KeysCommand())
	},
}

func init() {
	rootCmd.AddCommand(actionCmd, achievementsCmd, keysCmd)
	actionCmd.AddCommand(actionOnceCmd)
}
