package main

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/standardbeagle/mmbroker/internal/config"
)

// addLaunchFlags registers flags shared by every command that opens a picker.
func addLaunchFlags(fs *pflag.FlagSet) {
	fs.String("url", "", "Manager page to open (overrides config)")
	fs.Int("width", 0, "Picker window width")
	fs.Int("height", 0, "Picker window height")
	fs.Duration("timeout", 0, "How long to wait for a selection (0 = config default)")
	fs.String("browser", "", "Browser command (default: system URL handler)")
	fs.Bool("app-mode", false, "Open a chromeless Chromium window")
	fs.String("listen", "", "Relay listen address")
}

// applyLaunchFlags copies explicitly set launch flags over cfg. Only flags the user
// changed are applied, so config file values survive unset flags.
func applyLaunchFlags(fs *pflag.FlagSet, cfg *config.Config, target managerTarget) {
	if fs.Changed("url") {
		v, _ := fs.GetString("url")
		target.setURL(cfg, v)
	}
	if fs.Changed("width") {
		v, _ := fs.GetInt("width")
		target.setSize(cfg, v, 0)
	}
	if fs.Changed("height") {
		v, _ := fs.GetInt("height")
		target.setSize(cfg, 0, v)
	}
	if fs.Changed("timeout") {
		v, _ := fs.GetDuration("timeout")
		cfg.Pick.Timeout = v
	}
	if fs.Changed("browser") {
		cfg.Launcher.Command, _ = fs.GetString("browser")
	}
	if fs.Changed("app-mode") {
		cfg.Launcher.AppMode, _ = fs.GetBool("app-mode")
	}
	if fs.Changed("listen") {
		cfg.Relay.Listen, _ = fs.GetString("listen")
	}
}

// managerTarget selects which manager section launch flags apply to.
type managerTarget int

const (
	targetMedia managerTarget = iota
	targetVideo
)

func (t managerTarget) setURL(cfg *config.Config, url string) {
	switch t {
	case targetMedia:
		cfg.MediaManager.URL = url
	case targetVideo:
		cfg.VideoManager.URL = url
	}
}

func (t managerTarget) setSize(cfg *config.Config, width, height int) {
	w, h := &cfg.MediaManager.Width, &cfg.MediaManager.Height
	if t == targetVideo {
		w, h = &cfg.VideoManager.Width, &cfg.VideoManager.Height
	}
	if width > 0 {
		*w = width
	}
	if height > 0 {
		*h = height
	}
}

// pickTimeout returns the timeout a pick should use.
func pickTimeout(cfg *config.Config) time.Duration {
	if cfg.Pick.Timeout < 0 {
		return 0
	}
	return cfg.Pick.Timeout
}
