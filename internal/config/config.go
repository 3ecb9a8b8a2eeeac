// Package config contains configuration types for mmbroker.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds the complete broker configuration.
type Config struct {
	// MediaManager configures the generic (action-tagged) picker.
	MediaManager ManagerConfig `json:"media_manager"`

	// VideoManager configures the keyed picker.
	VideoManager VideoConfig `json:"video_manager"`

	// Relay configures the opener's WebSocket endpoint.
	Relay RelayConfig `json:"relay"`

	// Launcher configures how picker windows are opened.
	Launcher LauncherConfig `json:"launcher"`

	// Pick holds defaults for blocking picks.
	Pick PickConfig `json:"pick"`
}

// ManagerConfig configures the generic media manager picker.
type ManagerConfig struct {
	// URL is the media manager page (opener_origin is appended).
	URL string `json:"url"`
	// Width and Height size the picker window.
	Width  int `json:"width"`
	Height int `json:"height"`
	// AutoClose closes the picker after a selection.
	AutoClose bool `json:"auto_close"`
	// Action is the protocol tag (default "mediamanager").
	Action string `json:"action"`
	// Name is the picker window name.
	Name string `json:"name"`
}

// VideoConfig configures the keyed video manager picker.
type VideoConfig struct {
	URL    string `json:"url"`
	Key    string `json:"key"`
	Model  string `json:"model"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// RelayConfig configures the relay server.
type RelayConfig struct {
	// Listen is the bind address (default 127.0.0.1:0).
	Listen string `json:"listen"`
	// AllowedOrigins are accepted in addition to the origins of the manager URLs.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// LauncherConfig configures the browser launcher.
type LauncherConfig struct {
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
	AppMode bool     `json:"app_mode"`
}

// PickConfig holds defaults for blocking picks.
type PickConfig struct {
	// Timeout bounds a pick; 0 waits indefinitely.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MediaManager: ManagerConfig{
			Width:     1000,
			Height:    640,
			AutoClose: true,
			Action:    "mediamanager",
			Name:      "Media Manager",
		},
		VideoManager: VideoConfig{
			Model:  "videomanager",
			Width:  1000,
			Height: 640,
			Name:   "Video Manager",
		},
		Relay: RelayConfig{
			Listen: "127.0.0.1:0",
		},
		Pick: PickConfig{
			Timeout: 5 * time.Minute,
		},
	}
}

// Validate checks the configuration for errors and restores defaults for unset sizes.
func (c *Config) Validate() error {
	defaults := DefaultConfig()

	if c.MediaManager.Width <= 0 {
		c.MediaManager.Width = defaults.MediaManager.Width
	}
	if c.MediaManager.Height <= 0 {
		c.MediaManager.Height = defaults.MediaManager.Height
	}
	if c.VideoManager.Width <= 0 {
		c.VideoManager.Width = defaults.VideoManager.Width
	}
	if c.VideoManager.Height <= 0 {
		c.VideoManager.Height = defaults.VideoManager.Height
	}
	if c.Relay.Listen == "" {
		c.Relay.Listen = defaults.Relay.Listen
	}
	if c.Pick.Timeout < 0 {
		return errors.New("pick timeout must not be negative")
	}

	for name, raw := range map[string]string{
		"media-manager url": c.MediaManager.URL,
		"video-manager url": c.VideoManager.URL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL: %q", name, raw)
		}
	}
	return nil
}
