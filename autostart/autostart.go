// Package autostart registers afkcli to start at login: a LaunchAgent on macOS
// and an XDG autostart desktop entry on Linux.
package autostart

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/afkcompanion/afkcli/utils"
	"gopkg.in/ini.v1"
	"howett.net/plist"
)

const (
	Label       = "com.afkcompanion.afkcli"
	desktopName = "afkcli.desktop"
)

var ErrUnsupported = errors.New("autostart is not supported on this platform")

// Entry describes the program started at login
type Entry struct {
	Label      string
	Name       string
	Executable string
	Args       []string
	LogPath    string
}

// NewEntry builds the entry for the running binary
func NewEntry(args ...string) (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return Entry{
		Label:      Label,
		Name:       "AFK Companion",
		Executable: exe,
		Args:       args,
		LogPath:    utils.DefaultLogPath(),
	}, nil
}

type launchAgent struct {
	Label             string   `plist:"Label"`
	ProgramArguments  []string `plist:"ProgramArguments"`
	RunAtLoad         bool     `plist:"RunAtLoad"`
	KeepAlive         bool     `plist:"KeepAlive"`
	ProcessType       string   `plist:"ProcessType"`
	StandardOutPath   string   `plist:"StandardOutPath,omitempty"`
	StandardErrorPath string   `plist:"StandardErrorPath,omitempty"`
}

// LaunchAgentPlist renders the macOS LaunchAgent property list
func LaunchAgentPlist(e Entry) ([]byte, error) {
	agent := launchAgent{
		Label:             e.Label,
		ProgramArguments:  append([]string{e.Executable}, e.Args...),
		RunAtLoad:         true,
		KeepAlive:         false,
		ProcessType:       "Interactive",
		StandardOutPath:   e.LogPath,
		StandardErrorPath: e.LogPath,
	}
	data, err := plist.MarshalIndent(agent, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode launch agent: %w", err)
	}
	return data, nil
}

// DesktopEntry renders the XDG autostart .desktop file
func DesktopEntry(e Entry) ([]byte, error) {
	// desktop files use Key=Value without padding
	ini.PrettyFormat = false

	cfg := ini.Empty()
	section, err := cfg.NewSection("Desktop Entry")
	if err != nil {
		return nil, err
	}

	keys := [][2]string{
		{"Type", "Application"},
		{"Name", e.Name},
		{"Comment", "Keeps the session from going idle"},
		{"Exec", execLine(e)},
		{"Terminal", "false"},
		{"X-GNOME-Autostart-enabled", "true"},
	}
	for _, kv := range keys {
		if _, err := section.NewKey(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", kv[0], err)
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode desktop entry: %w", err)
	}
	return buf.Bytes(), nil
}

func execLine(e Entry) string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.Executable}, e.Args...) {
		if strings.ContainsAny(p, " \t\"'\\") {
			p = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// Path returns where the entry lives for goos
func Path(goos string) (string, error) {
	switch goos {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
	case "linux", "freebsd", "openbsd":
		return filepath.Join(utils.ConfigHome(), "autostart", desktopName), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}

func render(goos string, e Entry) ([]byte, error) {
	if goos == "darwin" {
		return LaunchAgentPlist(e)
	}
	return DesktopEntry(e)
}

// Install writes the entry for the current platform and returns its path
func Install(e Entry) (string, error) {
	return install(runtime.GOOS, e)
}

func install(goos string, e Entry) (string, error) {
	path, err := Path(goos)
	if err != nil {
		return "", err
	}
	data, err := render(goos, e)
	if err != nil {
		return "", err
	}
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	utils.Verbose("autostart entry written to %s", path)
	return path, nil
}

// Uninstall removes the entry; removing a missing entry is not an error
func Uninstall() (string, error) {
	return uninstall(runtime.GOOS)
}

func uninstall(goos string) (string, error) {
	path, err := Path(goos)
	if err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return path, nil
}

// Installed reports whether an entry exists for the current platform
func Installed() bool {
	path, err := Path(runtime.GOOS)
	return err == nil && utils.FileExists(path)
}
