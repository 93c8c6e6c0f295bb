package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/afkcompanion/afkcli/server"
	"github.com/sevlyar/go-daemon"
)

const (
	// DaemonEnvVar is the environment variable that marks a daemon child process
	DaemonEnvVar = "AFKCLI_DAEMON_CHILD"
)

// Daemonize detaches the process and returns the child process handle.
// If the returned process is nil, this is the child process.
// If the returned process is non-nil, this is the parent process.
// The child writes its stdout and stderr to logPath.
func Daemonize(logPath string) (*os.Process, error) {
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	// no PID file needed, server.shutdown over rpc stops the child
	ctx := &daemon.Context{
		PidFileName: "",
		PidFilePerm: 0,
		LogFileName: logPath,
		LogFilePerm: 0o640,
		WorkDir:     "/",
		Umask:       027,
		Args:        os.Args,
		Env:         append(os.Environ(), fmt.Sprintf("%s=1", DaemonEnvVar)),
	}

	child, err := ctx.Reborn()
	if err != nil {
		return nil, fmt.Errorf("failed to daemonize: %w", err)
	}

	return child, nil
}

// IsChild returns true if this is the daemon child process
func IsChild() bool {
	return os.Getenv(DaemonEnvVar) == "1"
}

// KillServer connects to the server and sends a shutdown command via JSON-RPC
func KillServer(ctx context.Context, addr string) error {
	client, err := server.NewClient(addr)
	if err != nil {
		return err
	}

	if err := client.Call(ctx, "server.shutdown", nil, nil); err != nil {
		if errors.Is(err, server.ErrNotRunning) {
			return err
		}
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
