package cli

import (
	"fmt"

	"github.com/afkcompanion/afkcli/daemon"
	"github.com/afkcompanion/afkcli/server"
	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/utils"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Server management commands",
	Long:  `Commands for managing the afkcli server, which owns the companion and serves JSON-RPC over /rpc and /ws.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the afkcli server",
	Long:  `Starts the afkcli server. The companion stays idle until a client toggles it.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}
		addr := serverAddr(cfg)

		if !utils.IsAddrAvailable(addr) {
			return fmt.Errorf("address %s is already in use", addr)
		}

		if isDaemon && !daemon.IsChild() {
			path := logPath
			if path == "" {
				path = utils.DefaultLogPath()
			}
			if _, err := daemon.Daemonize(path); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			fmt.Printf("Server daemon spawned, attempting to listen on %s (log: %s)\n", addr, path)
			return nil
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		srv := server.New(a.companion, enableCORS || cfg.Server.CORS)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

var serverKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Stop the afkcli server",
	Long:  `Connects to the server and sends a shutdown command via JSON-RPC.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		if err := daemon.KillServer(cmd.Context(), serverAddr(cfg)); err != nil {
			return err
		}

		fmt.Printf("Server shutdown command sent successfully\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// add server subcommands
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverKillCmd)

	// server start flags
	serverStartCmd.Flags().StringVar(&listenAddr, "listen", "", fmt.Sprintf("Address to listen on (default: %s)", settings.DefaultListenAddress))
	serverStartCmd.Flags().BoolVar(&enableCORS, "cors", false, "Enable CORS support")
	serverStartCmd.Flags().BoolVarP(&isDaemon, "daemon", "d", false, "Run server in daemon mode (background)")
	serverStartCmd.Flags().StringVar(&logPath, "log", "", "Log file for daemon mode")

	// server kill flags
	serverKillCmd.Flags().StringVar(&listenAddr, "listen", "", "Address of server to kill")
}
