package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/afkcompanion/afkcli/commands"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Usage statistics",
}

var statsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show session and lifetime statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		return printResponse(commands.StatsCommand(cmd.Context(), backend))
	},
}

var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear lifetime statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		return printResponse(commands.StatsResetCommand(cmd.Context(), backend))
	},
}

var statsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export statistics as json, yaml or toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, done, err := resolveBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		summary, err := backend.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		var w io.Writer = os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}

		if err := commands.ExportStats(w, exportFormat, summary); err != nil {
			return err
		}
		if exportOutput != "" {
			utils.Info("Statistics written to %s", exportOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsShowCmd, statsResetCmd, statsExportCmd)

	statsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", fmt.Sprintf("Output format (%s)", strings.Join(commands.ExportFormats, ", ")))
	statsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
}
