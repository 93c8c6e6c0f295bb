package cli

import (
	"fmt"

	"github.com/afkcompanion/afkcli/utils"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the companion in the foreground",
	Long:  `Starts the companion immediately and keeps it running until interrupted (Ctrl+C). Statistics are saved on exit.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.companion.Start(); err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}

		cfg := a.companion.Config()
		utils.Info("Active: every %s, %dpx, key %s (Ctrl+C to stop)", cfg.Interval(), cfg.PixelDistance, cfg.KeyButton)

		updates, cancel := a.companion.Subscribe()
		defer cancel()

		lastCount := -1
		for {
			select {
			case <-ctx.Done():
				return nil
			case state, ok := <-updates:
				if !ok {
					return nil
				}
				if state.ActionCount != lastCount {
					lastCount = state.ActionCount
					if outcome, ok := a.companion.LastOutcome(); ok {
						utils.Verbose("action %d: %s", state.ActionCount, outcome.Message)
					}
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
