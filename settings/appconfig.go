package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/afkcompanion/afkcli/utils"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Environment overrides, applied after the ini file
const (
	EnvConfigPath   = "AFKCLI_CONFIG"
	EnvStorePath    = "AFKCLI_STORE"
	EnvCloudEnabled = "AFKCLI_CLOUD_ENABLED"
	EnvCloudURL     = "AFKCLI_CLOUD_URL"
	EnvCloudDir     = "AFKCLI_CLOUD_DIR"
	EnvListen       = "AFKCLI_LISTEN"
)

const DefaultListenAddress = "localhost:12000"

// DefaultThresholds unlock one achievement every 15 actions
var DefaultThresholds = []int{15, 30, 45, 60, 75, 90, 105, 120, 135, 150}

// AnimationConfig controls the stepped cursor animation
type AnimationConfig struct {
	Steps      int
	StepDelay  time.Duration
	PauseDelay time.Duration
}

func DefaultAnimation() AnimationConfig {
	return AnimationConfig{
		Steps:      12,
		StepDelay:  8 * time.Millisecond,
		PauseDelay: 80 * time.Millisecond,
	}
}

type CloudConfig struct {
	Enabled bool
	// AppEnabled mirrors the per-application cloud switch; both must be on for sync
	AppEnabled bool
	URL        string
	Dir        string
}

type ServerConfig struct {
	Listen string
	CORS   bool
}

// AppConfig is the static application configuration read from afkcli.ini
type AppConfig struct {
	Path       string
	StorePath  string
	Cloud      CloudConfig
	Strategies []string
	Animation  AnimationConfig
	Thresholds []int
	Server     ServerConfig
}

// DefaultAppConfig returns the configuration used when no file exists
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Path:       utils.DefaultConfigPath(),
		StorePath:  utils.DefaultStorePath(),
		Cloud:      CloudConfig{AppEnabled: true},
		Strategies: []string{"cursor", "nudge"},
		Animation:  DefaultAnimation(),
		Thresholds: append([]int(nil), DefaultThresholds...),
		Server:     ServerConfig{Listen: DefaultListenAddress},
	}
}

// LoadAppConfig reads the ini file at path (or the default location when empty).
// A missing file is not an error; env overrides from the process and an optional
// .env file next to the config are applied on top.
func LoadAppConfig(path string) (*AppConfig, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = utils.DefaultConfigPath()
	}

	cfg := DefaultAppConfig()
	cfg.Path = path

	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if utils.FileExists(dotenv) {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
		}
	}

	if _, err := os.Stat(path); err == nil {
		file, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		if err := applyIni(cfg, file); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyIni(cfg *AppConfig, file *ini.File) error {
	storage := file.Section("storage")
	cfg.StorePath = storage.Key("path").MustString(cfg.StorePath)

	cloud := file.Section("cloud")
	cfg.Cloud.Enabled = cloud.Key("enabled").MustBool(cfg.Cloud.Enabled)
	cfg.Cloud.AppEnabled = cloud.Key("app_enabled").MustBool(cfg.Cloud.AppEnabled)
	cfg.Cloud.URL = cloud.Key("url").MustString(cfg.Cloud.URL)
	cfg.Cloud.Dir = cloud.Key("dir").MustString(cfg.Cloud.Dir)

	automation := file.Section("automation")
	if automation.HasKey("strategies") {
		cfg.Strategies = automation.Key("strategies").Strings(",")
	}
	cfg.Animation.Steps = automation.Key("steps").MustInt(cfg.Animation.Steps)
	cfg.Animation.StepDelay = time.Duration(automation.Key("step_delay_ms").MustInt(int(cfg.Animation.StepDelay/time.Millisecond))) * time.Millisecond
	cfg.Animation.PauseDelay = time.Duration(automation.Key("pause_delay_ms").MustInt(int(cfg.Animation.PauseDelay/time.Millisecond))) * time.Millisecond

	achievements := file.Section("achievements")
	if achievements.HasKey("thresholds") {
		thresholds, err := achievements.Key("thresholds").StrictInts(",")
		if err != nil {
			return fmt.Errorf("achievements.thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	server := file.Section("server")
	cfg.Server.Listen = server.Key("listen").MustString(cfg.Server.Listen)
	cfg.Server.CORS = server.Key("cors").MustBool(cfg.Server.CORS)

	return nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv(EnvStorePath); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv(EnvCloudEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCloudEnabled, err)
		}
		cfg.Cloud.Enabled = enabled
	}
	if v := os.Getenv(EnvCloudURL); v != "" {
		cfg.Cloud.URL = v
	}
	if v := os.Getenv(EnvCloudDir); v != "" {
		cfg.Cloud.Dir = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Server.Listen = v
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("storage path is required")
	}
	if c.Animation.Steps < 1 {
		return fmt.Errorf("automation.steps must be at least 1, got %d", c.Animation.Steps)
	}
	if c.Animation.StepDelay < 0 || c.Animation.PauseDelay < 0 {
		return fmt.Errorf("automation delays must not be negative")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("automation.strategies must name at least one strategy")
	}
	for i := range c.Strategies {
		c.Strategies[i] = strings.TrimSpace(c.Strategies[i])
	}
	for i := 1; i < len(c.Thresholds); i++ {
		if c.Thresholds[i] <= c.Thresholds[i-1] {
			return fmt.Errorf("achievements.thresholds must be strictly ascending")
		}
	}
	if c.Cloud.Enabled && c.Cloud.URL == "" && c.Cloud.Dir == "" {
		return fmt.Errorf("cloud is enabled but neither cloud.url nor cloud.dir is set")
	}
	return nil
}
