package cli

import (
	"fmt"
	"strings"

	"github.com/afkcompanion/afkcli/commands"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or change settings",
	Long:  fmt.Sprintf(`Reads or changes the synced settings: %s.`, strings.Join(commands.ConfigKeys, ", ")),
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one setting or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		key := ""
		if len(args) == 1 {
			key = args[0]
		}
		return printResponse(commands.ConfigGetCommand(cmd.Context(), backend, key))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Changes a setting. Examples:
  afkcli config set interval 30s
  afkcli config set interval 90000
  afkcli config set pixel-distance 10
  afkcli config set key-button f15`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		return printResponse(commands.ConfigSetCommand(cmd.Context(), backend, args[0], args[1]))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd)
}
