package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/config"
	"github.com/standardbeagle/mmbroker/internal/launcher"
	"github.com/standardbeagle/mmbroker/internal/relay"
)

// loadConfig reads --config if given, otherwise resolves config from the working directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadConfigFile(path)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.Load(cwd)
}

// allowedOrigins returns the picker origins the relay accepts: the configured extras plus
// the origins of both manager URLs.
func allowedOrigins(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var origins []string
	add := func(o string) {
		if o != "" && !seen[o] {
			seen[o] = true
			origins = append(origins, o)
		}
	}

	for _, o := range cfg.Relay.AllowedOrigins {
		add(o)
	}
	add(relay.OriginOf(cfg.MediaManager.URL))
	add(relay.OriginOf(cfg.VideoManager.URL))
	return origins
}

// startRelay starts the relay pickers connect back to.
func startRelay(ctx context.Context, cfg *config.Config) (*relay.Server, error) {
	srv := relay.NewServer(relay.Config{
		ListenAddr:     cfg.Relay.Listen,
		AllowedOrigins: allowedOrigins(cfg),
	})
	if err := srv.Start(ctx); err != nil {
		return nil, err
	}
	<-srv.Ready()
	return srv, nil
}

func newLauncher(cfg *config.Config) *launcher.Launcher {
	return launcher.New(launcher.Config{
		Command: cfg.Launcher.Command,
		Args:    cfg.Launcher.Args,
		AppMode: cfg.Launcher.AppMode,
	})
}

// newMediaController builds the generic controller and registers it with srv.
func newMediaController(cfg *config.Config, srv *relay.Server, l broker.Launcher) (*broker.Controller, error) {
	c, err := broker.NewController(broker.Config{
		URL:       cfg.MediaManager.URL,
		Origin:    srv.Origin(),
		Width:     cfg.MediaManager.Width,
		Height:    cfg.MediaManager.Height,
		AutoClose: cfg.MediaManager.AutoClose,
		Action:    cfg.MediaManager.Action,
		Name:      cfg.MediaManager.Name,
		Launcher:  l,
	})
	if err != nil {
		return nil, fmt.Errorf("media-manager: %w", err)
	}
	srv.Register(c)
	return c, nil
}

// newVideoController builds the keyed controller and registers it with srv.
func newVideoController(cfg *config.Config, srv *relay.Server, l broker.Launcher) (*broker.KeyedController, error) {
	c, err := broker.NewKeyedController(broker.KeyedConfig{
		URL:      cfg.VideoManager.URL,
		Origin:   srv.Origin(),
		Key:      cfg.VideoManager.Key,
		Model:    cfg.VideoManager.Model,
		Width:    cfg.VideoManager.Width,
		Height:   cfg.VideoManager.Height,
		Name:     cfg.VideoManager.Name,
		Launcher: l,
	})
	if err != nil {
		return nil, fmt.Errorf("video-manager: %w", err)
	}
	srv.Register(c)
	return c, nil
}
