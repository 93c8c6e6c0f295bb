package cli

import (
	"github.com/afkcompanion/afkcli/automation"
	"github.com/afkcompanion/afkcli/commands"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system diagnostics",
	Long:  `Performs system diagnostics for better troubleshooting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return printResponse(commands.NewErrorResponse(err))
		}

		return printResponse(commands.DoctorCommand(GetVersion(), cfg, automation.NewSystemPrimitive()))
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
