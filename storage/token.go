package storage

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "afkcli"
	keyringUser    = "cloud-sync"
)

// ErrNoToken means the user never logged in to cloud sync
var ErrNoToken = errors.New("not logged in to cloud sync")

func SaveToken(token string) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("failed to store cloud token: %w", err)
	}
	return nil
}

func LoadToken() (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cloud token: %w", err)
	}
	return token, nil
}

func DeleteToken() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoToken
	}
	return err
}
