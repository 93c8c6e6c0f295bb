package cli

import (
	"fmt"
	"io"

	"github.com/afkcompanion/afkcli/tui"
	"github.com/afkcompanion/afkcli/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal interface",
	Long:  `Opens a terminal interface showing live status and statistics, with keys to toggle the companion and adjust settings.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}
		if _, running := runningServer(ctx, cfg); running {
			return fmt.Errorf("a server is running on %s; stop it with 'afkcli server kill' first", serverAddr(cfg))
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// keep log lines from tearing the alt screen
		if !utils.IsVerbose() {
			utils.SetOutput(io.Discard)
		}

		model := tui.NewModel(a.companion)
		defer model.Close()

		if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			return fmt.Errorf("terminal interface failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
