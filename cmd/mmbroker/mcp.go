package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/mmbroker/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server",
	Long: `Run as an MCP (Model Context Protocol) server over stdio.

Exposes the media and video pickers as tools so an assistant can ask the user to pick
a file. Managers without a configured URL are reported as not configured.`,
	Run: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) {
	// MCP owns stdout
	log.SetOutput(os.Stderr)

	// Create root context with signal cancellation
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	srv, err := startRelay(ctx, cfg)
	if err != nil {
		log.Fatalf("Relay error: %v", err)
	}
	defer stopRelay(srv)

	mt := &tools.MediaTools{Relay: srv, Timeout: pickTimeout(cfg)}
	l := newLauncher(cfg)

	if cfg.MediaManager.URL != "" {
		if mt.Media, err = newMediaController(cfg, srv, l); err != nil {
			log.Printf("[WARN] %v", err)
		} else {
			defer mt.Media.Close()
		}
	}
	if cfg.VideoManager.URL != "" {
		if mt.Video, err = newVideoController(cfg, srv, l); err != nil {
			log.Printf("[WARN] %v", err)
		} else {
			defer mt.Video.Close()
		}
	}

	// Create MCP server
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    appName,
			Version: appVersion,
		},
		&mcp.ServerOptions{
			HasTools: true,
			Instructions: `Media picker broker. Opens a media manager in the user's browser and returns the file they pick.

Available tools:
- media: open/close/status/pick for the media manager (returns a /media/ URL and alt text)
- video: open/close/status/pick for the video manager (returns the manager's payload)

pick blocks until the user chooses or the timeout expires; the picker window stays open
after a timeout.`,
		},
	)

	tools.RegisterMediaTools(server, mt)

	log.Printf("Starting %s v%s (relay %s)", appName, appVersion, srv.Origin())

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		if ctx.Err() == nil {
			log.Printf("Server error: %v", err)
		}
	}

	log.Println("MCP server shutdown complete")
}
