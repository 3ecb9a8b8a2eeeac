package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	kdl "github.com/sblinch/kdl-go"
)

// KDL configuration file names
const (
	GlobalConfigFile  = "config.kdl"
	ProjectConfigFile = "mmbroker.kdl"
)

// KDLConfig represents the KDL configuration structure.
// Uses kdl struct tags for unmarshaling.
type KDLConfig struct {
	MediaManager *KDLManager  `kdl:"media-manager"`
	VideoManager *KDLVideo    `kdl:"video-manager"`
	Relay        *KDLRelay    `kdl:"relay"`
	Launcher     *KDLLauncher `kdl:"launcher"`
	Pick         *KDLPick     `kdl:"pick"`
}

// KDLManager holds the media-manager section.
type KDLManager struct {
	URL       string `kdl:"url"`
	Width     int    `kdl:"width"`
	Height    int    `kdl:"height"`
	AutoClose *bool  `kdl:"auto-close"`
	Action    string `kdl:"action"`
	Name      string `kdl:"name"`
}

// KDLVideo holds the video-manager section.
type KDLVideo struct {
	URL    string `kdl:"url"`
	Key    string `kdl:"key"`
	Model  string `kdl:"model"`
	Width  int    `kdl:"width"`
	Height int    `kdl:"height"`
	Name   string `kdl:"name"`
}

// KDLRelay holds the relay section.
type KDLRelay struct {
	Listen         string   `kdl:"listen"`
	AllowedOrigins []string `kdl:"allowed-origins"`
}

// KDLLauncher holds the launcher section.
type KDLLauncher struct {
	Command string   `kdl:"command"`
	Args    []string `kdl:"args"`
	AppMode *bool    `kdl:"app-mode"`
}

// KDLPick holds the pick section. Timeout is in seconds.
type KDLPick struct {
	Timeout *int `kdl:"timeout"`
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "mmbroker", GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration from the default location.
func LoadGlobalConfig() (*Config, error) {
	configPath := GlobalConfigPath()
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// If file doesn't exist, return defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	return LoadConfigFile(configPath)
}

// LoadConfigFile loads configuration from a specific file path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseConfig(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses KDL configuration data over the defaults.
func ParseConfig(data string) (*Config, error) {
	var kdlCfg KDLConfig
	if err := kdl.Unmarshal([]byte(data), &kdlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := kdlConfigToConfig(&kdlCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// kdlConfigToConfig converts KDL config to our Config type.
func kdlConfigToConfig(kdlCfg *KDLConfig) *Config {
	cfg := DefaultConfig()

	if m := kdlCfg.MediaManager; m != nil {
		setString(&cfg.MediaManager.URL, m.URL)
		setInt(&cfg.MediaManager.Width, m.Width)
		setInt(&cfg.MediaManager.Height, m.Height)
		if m.AutoClose != nil {
			cfg.MediaManager.AutoClose = *m.AutoClose
		}
		setString(&cfg.MediaManager.Action, m.Action)
		setString(&cfg.MediaManager.Name, m.Name)
	}

	if v := kdlCfg.VideoManager; v != nil {
		setString(&cfg.VideoManager.URL, v.URL)
		setString(&cfg.VideoManager.Key, v.Key)
		setString(&cfg.VideoManager.Model, v.Model)
		setInt(&cfg.VideoManager.Width, v.Width)
		setInt(&cfg.VideoManager.Height, v.Height)
		setString(&cfg.VideoManager.Name, v.Name)
	}

	if r := kdlCfg.Relay; r != nil {
		setString(&cfg.Relay.Listen, r.Listen)
		if len(r.AllowedOrigins) > 0 {
			cfg.Relay.AllowedOrigins = r.AllowedOrigins
		}
	}

	if l := kdlCfg.Launcher; l != nil {
		setString(&cfg.Launcher.Command, l.Command)
		if len(l.Args) > 0 {
			cfg.Launcher.Args = l.Args
		}
		if l.AppMode != nil {
			cfg.Launcher.AppMode = *l.AppMode
		}
	}

	if p := kdlCfg.Pick; p != nil && p.Timeout != nil {
		cfg.Pick.Timeout = time.Duration(*p.Timeout) * time.Second
	}

	return cfg
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
