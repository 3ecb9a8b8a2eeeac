package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Load resolves configuration for dir: the nearest mmbroker.kdl walking up from dir,
// then the global config, then defaults.
func Load(dir string) (*Config, error) {
	if configPath := FindConfigFile(dir); configPath != "" {
		log.Printf("[DEBUG] config: using %s", configPath)
		return LoadConfigFile(configPath)
	}

	log.Printf("[DEBUG] config: no %s found for dir %s", ProjectConfigFile, dir)
	return LoadGlobalConfig()
}

// FindConfigFile searches for mmbroker.kdl starting from dir and walking up.
func FindConfigFile(dir string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(absDir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			break
		}
		absDir = parent
	}

	return ""
}

// WriteDefaultConfig writes a default config file with documentation.
func WriteDefaultConfig(path string) error {
	defaultKDL := `// mmbroker configuration
// Project files (mmbroker.kdl) are found by walking up from the working directory.

// Generic media manager picker
media-manager {
    // Page to open; opener_origin is appended
    // url "https://cms.example.com/admin/media/manager"
    width 1000
    height 640
    auto-close true
    action "mediamanager"
    name "Media Manager"
}

// Keyed video manager picker
video-manager {
    // url "https://video.example.com/manager"
    // key "shared-secret"
    model "videomanager"
    width 1000
    height 640
    name "Video Manager"
}

// WebSocket endpoint pickers connect back to
relay {
    listen "127.0.0.1:0"
    // Extra picker origins; the manager URL origins are always allowed
    // allowed-origins "https://cdn.example.com"
}

// Browser used for picker windows (default: system URL handler)
launcher {
    // command "chromium"
    // args "--incognito"
    app-mode false
}

pick {
    // Seconds to wait for a selection (0 = forever)
    timeout 300
}
`
	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(strings.TrimSpace(defaultKDL)+"\n"), 0644)
}
