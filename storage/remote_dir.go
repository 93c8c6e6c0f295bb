package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/afkcompanion/afkcli/utils"
)

// DirRemote stores remote files in a directory, typically one kept in sync by a third-party client.
// The account counts as enabled while the directory exists.
type DirRemote struct {
	dir        string
	appEnabled bool
}

func NewDirRemote(dir string, appEnabled bool) *DirRemote {
	return &DirRemote{dir: dir, appEnabled: appEnabled}
}

func (d *DirRemote) path(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid remote file name %q", name)
	}
	return filepath.Join(d.dir, name), nil
}

func (d *DirRemote) Exists(ctx context.Context, name string) (bool, error) {
	p, err := d.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DirRemote) Read(ctx context.Context, name string) ([]byte, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remote %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read remote %q: %w", name, err)
	}
	return data, nil
}

func (d *DirRemote) Write(ctx context.Context, name string, data []byte) (bool, error) {
	p, err := d.path(name)
	if err != nil {
		return false, err
	}
	if err := utils.WriteFileAtomic(p, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write remote %q: %w", name, err)
	}
	return true, nil
}

func (d *DirRemote) CloudEnabledForAccount() bool {
	info, err := os.Stat(d.dir)
	return err == nil && info.IsDir()
}

func (d *DirRemote) CloudEnabledForApp() bool {
	return d.appEnabled
}
