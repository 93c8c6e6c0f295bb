package commands

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/afkcompanion/afkcli/automation"
	"github.com/afkcompanion/afkcli/autostart"
	"github.com/afkcompanion/afkcli/settings"
	"github.com/afkcompanion/afkcli/storage"
	"github.com/afkcompanion/afkcli/utils"
)

type DoctorInfo struct {
	AfkcliVersion      string   `json:"afkcli_version"`
	OS                 string   `json:"os"`
	OSVersion          string   `json:"os_version"`
	SessionType        string   `json:"session_type,omitempty"`
	Display            string   `json:"display,omitempty"`
	WaylandDisplay     string   `json:"wayland_display,omitempty"`
	AutomationBackend  string   `json:"automation_backend"`
	AutomationReady    bool     `json:"automation_ready"`
	AutomationError    string   `json:"automation_error,omitempty"`
	XdotoolPath        string   `json:"xdotool_path,omitempty"`
	ConfigPath         string   `json:"config_path"`
	ConfigExists       bool     `json:"config_exists"`
	StorePath          string   `json:"store_path"`
	StoreKeys          []string `json:"store_keys,omitempty"`
	StoreError         string   `json:"store_error,omitempty"`
	Strategies         []string `json:"strategies,omitempty"`
	StrategyError      string   `json:"strategy_error,omitempty"`
	LogPath            string   `json:"log_path"`
	CloudEnabled       bool     `json:"cloud_enabled"`
	CloudTarget        string   `json:"cloud_target,omitempty"`
	AutostartInstalled bool     `json:"autostart_installed"`
}

// common install locations checked before falling back to PATH
var xdotoolPaths = []string{
	"/usr/bin/xdotool",
	"/usr/local/bin/xdotool",
	"/opt/homebrew/bin/xdotool",
	"/snap/bin/xdotool",
}

func getXdotoolPath() string {
	if runtime.GOOS != "linux" {
		return ""
	}

	for _, p := range xdotoolPaths {
		if utils.FileExists(p) {
			return p
		}
	}

	path, err := exec.LookPath("xdotool")
	if err == nil {
		return path
	}

	return ""
}

func getOSVersion() string {
	switch runtime.GOOS {
	case "darwin":
		cmd := exec.Command("sw_vers", "-productVersion")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "windows":
		cmd := exec.Command("cmd", "/c", "ver")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "linux":
		data, err := os.ReadFile("/etc/os-release")
		if err != nil {
			return ""
		}
		return parseOSRelease(string(data))
	default:
		return ""
	}
}

func parseOSRelease(data string) string {
	for _, line := range strings.Split(data, "\n") {
		if strings.HasPrefix(line, "PRETTY_NAME=") {
			return strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), "\"")
		}
	}
	return ""
}

// storeKeys lists what the store holds without creating a missing one
func storeKeys(path string) ([]string, error) {
	if !utils.FileExists(path) {
		return nil, nil
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Keys(context.Background())
}

func cloudTarget(cfg settings.CloudConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return cfg.Dir
}

// DoctorCommand performs system diagnostics and returns information about the environment
func DoctorCommand(version string, cfg *settings.AppConfig, primitive automation.Primitive) *CommandResponse {
	info := DoctorInfo{
		AfkcliVersion:      version,
		OS:                 runtime.GOOS,
		OSVersion:          getOSVersion(),
		AutomationBackend:  primitive.Name(),
		ConfigPath:         cfg.Path,
		ConfigExists:       utils.FileExists(cfg.Path),
		StorePath:          cfg.StorePath,
		LogPath:            utils.DefaultLogPath(),
		CloudEnabled:       cfg.Cloud.Enabled && cfg.Cloud.AppEnabled,
		CloudTarget:        cloudTarget(cfg.Cloud),
		AutostartInstalled: autostart.Installed(),
	}

	if runtime.GOOS == "linux" {
		info.SessionType = os.Getenv("XDG_SESSION_TYPE")
		info.Display = os.Getenv("DISPLAY")
		info.WaylandDisplay = os.Getenv("WAYLAND_DISPLAY")
		info.XdotoolPath = getXdotoolPath()
	}

	if keys, err := storeKeys(cfg.StorePath); err != nil {
		info.StoreError = err.Error()
	} else {
		info.StoreKeys = keys
	}

	if strategies, err := automation.ParseStrategies(cfg.Strategies); err != nil {
		info.StrategyError = err.Error()
	} else {
		chain := automation.NewChain(automation.NewExecutor(primitive, cfg.Animation), strategies)
		for _, kind := range chain.Strategies() {
			info.Strategies = append(info.Strategies, string(kind))
		}
	}

	if err := automation.Probe(primitive); err != nil {
		info.AutomationError = err.Error()
	} else {
		info.AutomationReady = true
	}

	return NewSuccessResponse(info)
}
