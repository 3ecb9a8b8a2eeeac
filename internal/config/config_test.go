package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1000, cfg.MediaManager.Width)
	assert.Equal(t, 640, cfg.MediaManager.Height)
	assert.True(t, cfg.MediaManager.AutoClose)
	assert.Equal(t, "mediamanager", cfg.MediaManager.Action)
	assert.Equal(t, "videomanager", cfg.VideoManager.Model)
	assert.Equal(t, "127.0.0.1:0", cfg.Relay.Listen)
	assert.Equal(t, 5*time.Minute, cfg.Pick.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestParseConfig(t *testing.T) {
	input := `// mmbroker.kdl
media-manager {
    url "https://cms.example.com/admin/media"
    width 1200
    auto-close false
    name "Assets"
}

video-manager {
    url "https://video.example.com/manager"
    key "s3cret"
}

relay {
    listen "127.0.0.1:9123"
    allowed-origins "https://cdn.example.com" "https://static.example.com"
}

launcher {
    command "chromium"
    args "--incognito" "--no-first-run"
    app-mode true
}

pick {
    timeout 30
}
`

	cfg, err := ParseConfig(input)
	require.NoError(t, err)

	assert.Equal(t, "https://cms.example.com/admin/media", cfg.MediaManager.URL)
	assert.Equal(t, 1200, cfg.MediaManager.Width)
	assert.Equal(t, 640, cfg.MediaManager.Height, "unset height keeps default")
	assert.False(t, cfg.MediaManager.AutoClose)
	assert.Equal(t, "Assets", cfg.MediaManager.Name)
	assert.Equal(t, "mediamanager", cfg.MediaManager.Action)

	assert.Equal(t, "https://video.example.com/manager", cfg.VideoManager.URL)
	assert.Equal(t, "s3cret", cfg.VideoManager.Key)
	assert.Equal(t, "videomanager", cfg.VideoManager.Model)

	assert.Equal(t, "127.0.0.1:9123", cfg.Relay.Listen)
	assert.Equal(t, []string{"https://cdn.example.com", "https://static.example.com"}, cfg.Relay.AllowedOrigins)

	assert.Equal(t, "chromium", cfg.Launcher.Command)
	assert.Equal(t, []string{"--incognito", "--no-first-run"}, cfg.Launcher.Args)
	assert.True(t, cfg.Launcher.AppMode)

	assert.Equal(t, 30*time.Second, cfg.Pick.Timeout)
}

func TestParseConfigPartial(t *testing.T) {
	cfg, err := ParseConfig("video-manager {\n    key \"abc\"\n}\n")
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.VideoManager.Key)
	assert.True(t, cfg.MediaManager.AutoClose)
	assert.Equal(t, 5*time.Minute, cfg.Pick.Timeout)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"relative media url", "media-manager {\n    url \"/admin/media\"\n}\n"},
		{"relative video url", "video-manager {\n    url \"manager\"\n}\n"},
		{"negative timeout", "pick {\n    timeout -1\n}\n"},
		{"not kdl", "media-manager {\n    url \"unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ProjectConfigFile)
	require.NoError(t, WriteDefaultConfig(path))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestFindConfigFile(t *testing.T) {
	// Create temp directory with nested subdirectory
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "web", "static")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	configPath := filepath.Join(tmpDir, ProjectConfigFile)
	require.NoError(t, os.WriteFile(configPath, []byte("pick {\n    timeout 10\n}\n"), 0644))

	// Find from subdirectory should walk up and find it
	assert.Equal(t, configPath, FindConfigFile(subDir))

	// Find from root should find it directly
	assert.Equal(t, configPath, FindConfigFile(tmpDir))

	// Find from non-existent directory should return empty
	assert.Equal(t, "", FindConfigFile("/nonexistent/path"))
}

func TestLoad(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	assert.Equal(t, filepath.Join(xdg, "mmbroker", GlobalConfigFile), GlobalConfigPath())

	project := t.TempDir()

	// Nothing anywhere: defaults.
	cfg, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	// Global file is used when no project file exists.
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "mmbroker"), 0755))
	require.NoError(t, os.WriteFile(GlobalConfigPath(), []byte("pick {\n    timeout 60\n}\n"), 0644))
	cfg, err = Load(project)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Pick.Timeout)

	// Project file wins.
	require.NoError(t, os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte("pick {\n    timeout 15\n}\n"), 0644))
	cfg, err = Load(project)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Pick.Timeout)
}
