package storage

import (
	"context"
	"fmt"

	"github.com/afkcompanion/afkcli/settings"
)

// Remote file names
const (
	RemoteSettings = "settings.json"
	RemoteStats    = "stats.json"
)

// Remote is an optional cloud copy of the settings and stats blobs.
// Write reports false when the remote declined the write without an error.
type Remote interface {
	Exists(ctx context.Context, name string) (bool, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) (bool, error)
	CloudEnabledForAccount() bool
	CloudEnabledForApp() bool
}

// Available reports whether r is configured and enabled at both levels
func Available(r Remote) bool {
	return r != nil && r.CloudEnabledForAccount() && r.CloudEnabledForApp()
}

// NewRemote picks the remote configured in cfg. Without one it returns nil, nil.
func NewRemote(cfg settings.CloudConfig, deviceID string) (Remote, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch {
	case cfg.URL != "":
		r, err := NewHTTPRemote(cfg.URL, deviceID, WithAppEnabled(cfg.AppEnabled))
		if err != nil {
			return nil, err
		}
		return r, nil
	case cfg.Dir != "":
		return NewDirRemote(cfg.Dir, cfg.AppEnabled), nil
	default:
		return nil, fmt.Errorf("cloud is enabled but neither url nor dir is set")
	}
}
