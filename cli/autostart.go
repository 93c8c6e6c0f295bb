package cli

import (
	"github.com/afkcompanion/afkcli/autostart"
	"github.com/afkcompanion/afkcli/commands"
	"github.com/spf13/cobra"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Start the afkcli server at login",
}

var autostartInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install a login item that starts the server",
	Long:  `Writes a LaunchAgent (macOS) or an XDG autostart entry (Linux) that runs 'afkcli server start' at login.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverArgs := []string{"server", "start"}
		if configPath != "" {
			serverArgs = append(serverArgs, "--config", configPath)
		}

		entry, err := autostart.NewEntry(serverArgs...)
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}

		path, err := autostart.Install(entry)
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}
		return printResponse(commands.NewSuccessResponse(map[string]string{"path": path}))
	},
}

var autostartUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the login item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := autostart.Uninstall()
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}
		return printResponse(commands.NewSuccessResponse(map[string]string{"path": path}))
	},
}

func init() {
	rootCmd.AddCommand(autostartCmd)
	autostartCmd.AddCommand(autostartInstallCmd, autostartUninstallCmd)
}
