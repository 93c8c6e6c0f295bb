package utils

import (
	"os"
	"path/filepath"
)

const appDirName = "afkcli"

// ConfigHome returns the XDG config home or a default fallback
func ConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// DataHome returns the XDG data home or a default fallback
func DataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPath is where afkcli.ini lives
func DefaultConfigPath() string {
	return filepath.Join(ConfigHome(), appDirName, "afkcli.ini")
}

// DefaultStorePath is the SQLite file holding settings, stats and achievements
func DefaultStorePath() string {
	return filepath.Join(DataHome(), appDirName, "afkcli.db")
}

// DefaultLogPath is used when the server runs detached
func DefaultLogPath() string {
	return filepath.Join(DataHome(), appDirName, "afkcli.log")
}
