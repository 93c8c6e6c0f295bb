package achievements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/afkcompanion/afkcli/storage"
)

// LocalUnlocker keeps the unlocked names as a JSON array under the achievements key
type LocalUnlocker struct {
	mu    sync.Mutex
	local storage.Local
}

func NewLocalUnlocker(local storage.Local) *LocalUnlocker {
	return &LocalUnlocker{local: local}
}

// Load returns the stored names; a missing key is an empty list
func (u *LocalUnlocker) Load(ctx context.Context) ([]string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loadLocked(ctx)
}

func (u *LocalUnlocker) loadLocked(ctx context.Context) ([]string, error) {
	raw, err := u.local.Get(ctx, storage.KeyAchievements)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("failed to decode achievements: %w", err)
	}
	return names, nil
}

func (u *LocalUnlocker) Unlock(ctx context.Context, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	names, err := u.loadLocked(ctx)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return nil
		}
	}

	names = append(names, name)
	sort.Strings(names)
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return u.local.Put(ctx, storage.KeyAchievements, data)
}
