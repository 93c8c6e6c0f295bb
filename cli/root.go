package cli

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/afkcompanion/afkcli/commands"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/spf13/cobra"
)

// set with -ldflags "-X github.com/afkcompanion/afkcli/cli.version=..."
var version = "dev"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "afkcli",
	Short: "Keeps your session active while you are away",
	Long: `afkcli periodically moves the cursor a few pixels and back (optionally tapping a
harmless key) so the system and chat apps do not mark you as idle.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func initConfig() {
	utils.SetVerbose(verbose)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to afkcli.ini (default: $XDG_CONFIG_HOME/afkcli/afkcli.ini)")
}

// GetVersion returns the build version
func GetVersion() string {
	return version
}

// Execute runs the root command
func Execute() error {
	// enable microseconds in logs
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return rootCmd.Execute()
}

// printJson is a helper function to print JSON responses
func printJson(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(jsonData))
}

// printResponse prints the response and turns an error status into a non-zero exit
func printResponse(response *commands.CommandResponse) error {
	printJson(response)
	if response.Status == "error" {
		return fmt.Errorf("%s", response.Error)
	}
	return nil
}
