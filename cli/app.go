package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/afkcompanion/afkcli/automation"
	"github.com/afkcompanion/afkcli/commands"
	"github.com/afkcompanion/afkcli/companion"
	"github.com/afkcompanion/afkcli/server"
	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/storage"
	"github.com/afkcompanion/afkcli/utils"
)

var (
	cleanupMu sync.Mutex
	cleanups  []func()
)

// registerCleanup queues fn to run from CleanupAll, newest first
func registerCleanup(fn func()) {
	cleanupMu.Lock()
	defer cleanupMu.Unlock()
	cleanups = append(cleanups, fn)
}

// CleanupAll stops any running companion, flushes its statistics and closes the store.
// Safe to call more than once.
func CleanupAll() {
	cleanupMu.Lock()
	pending := cleanups
	cleanups = nil
	cleanupMu.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
}

func loadAppConfig() (*settings.AppConfig, error) {
	cfg, err := settings.LoadAppConfig(configPath)
	if err != nil {
		return nil, err
	}
	utils.Verbose("using config %s, store %s", cfg.Path, cfg.StorePath)
	return cfg, nil
}

// app is a companion wired to the local store, the cloud remote and the OS input backend
type app struct {
	cfg       *settings.AppConfig
	store     *storage.SQLite
	companion *companion.Companion
	once      sync.Once
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}

	strategies, err := automation.ParseStrategies(cfg.Strategies)
	if err != nil {
		return nil, err
	}

	store, err := storage.OpenSQLite(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	installID, err := companion.EnsureInstallID(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	remote, err := storage.NewRemote(cfg.Cloud, installID)
	if err != nil {
		// local storage stays the record
		utils.Warn("cloud sync disabled: %v", err)
		remote = nil
	}

	executor := automation.NewExecutor(automation.NewSystemPrimitive(), cfg.Animation)
	chain := automation.NewChain(executor, strategies)

	c, err := companion.Open(ctx, companion.Deps{
		Runner:     chain,
		Local:      store,
		Remote:     remote,
		Thresholds: cfg.Thresholds,
		InstallID:  installID,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{cfg: cfg, store: store, companion: c}
	registerCleanup(a.Close)
	return a, nil
}

// Close stops the companion (persisting the session) and closes the store
func (a *app) Close() {
	a.once.Do(func() {
		a.companion.Close()
		if err := a.store.Close(); err != nil {
			utils.Warn("failed to close store: %v", err)
		}
	})
}

func serverAddr(cfg *settings.AppConfig) string {
	if listenAddr != "" {
		return listenAddr
	}
	return cfg.Server.Listen
}

// runningServer returns a client when a server is listening on the configured address
func runningServer(ctx context.Context, cfg *settings.AppConfig) (*server.Client, bool) {
	client, err := server.NewClient(serverAddr(cfg))
	if err != nil {
		return nil, false
	}
	return client, client.Running(ctx)
}

// resolveBackend prefers a running server so changes reach the live companion;
// otherwise it opens the store in-process.
func resolveBackend(ctx context.Context) (commands.Backend, func(), error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, nil, err
	}

	if client, ok := runningServer(ctx, cfg); ok {
		utils.Verbose("using server on %s", serverAddr(cfg))
		return commands.RemoteBackend{Client: client}, func() {}, nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	return commands.LocalBackend{Companion: a.companion}, a.Close, nil
}

var errNoServer = errors.New("no afkcli server is running")

// remoteBackend requires a running server
func remoteBackend(ctx context.Context) (commands.Backend, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	client, ok := runningServer(ctx, cfg)
	if !ok {
		return nil, fmt.Errorf("%w on %s; start one with 'afkcli server start -d' or use 'afkcli run'", errNoServer, serverAddr(cfg))
	}
	return commands.RemoteBackend{Client: client}, nil
}
