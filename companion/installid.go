package companion

import (
	"context"
	"errors"
	"fmt"

	"github.com/afkcompanion/afkcli/storage"
	"github.com/google/uuid"
)

// EnsureInstallID returns the id identifying this installation, creating it on first use
func EnsureInstallID(ctx context.Context, local storage.Local) (string, error) {
	raw, err := local.Get(ctx, storage.KeyInstallID)
	if err == nil {
		if id, perr := uuid.ParseBytes(raw); perr == nil {
			return id.String(), nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	id := uuid.NewString()
	if err := local.Put(ctx, storage.KeyInstallID, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to save install id: %w", err)
	}
	return id, nil
}
