package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Open the video manager and print the picked video",
	Long: `Open the video manager in a browser window and wait for a selection.

The video manager is launched with site, key and model parameters and answers with a
message keyed by the model. Its payload is printed as JSON unchanged. The window is
always closed after the selection.

Examples:
  mmbroker video --url https://video.example.com/manager --key s3cret`,
	RunE: runVideo,
}

func init() {
	addLaunchFlags(videoCmd.Flags())
	videoCmd.Flags().String("key", "", "Shared key passed to the video manager")
	videoCmd.Flags().String("model", "", "Message key the video manager answers with")
}

func runVideo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyLaunchFlags(cmd.Flags(), cfg, targetVideo)
	if cmd.Flags().Changed("key") {
		cfg.VideoManager.Key, _ = cmd.Flags().GetString("key")
	}
	if cmd.Flags().Changed("model") {
		cfg.VideoManager.Model, _ = cmd.Flags().GetString("model")
	}
	if cfg.VideoManager.URL == "" {
		return fmt.Errorf("no video manager URL (use --url or set video-manager url in mmbroker.kdl)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := startRelay(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopRelay(srv)

	c, err := newVideoController(cfg, srv, newLauncher(cfg))
	if err != nil {
		return err
	}
	defer c.Close()

	if timeout := pickTimeout(cfg); timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, timeout)
		defer timeoutCancel()
	}

	c.Open()
	if err := c.LastError(); err != nil {
		return fmt.Errorf("failed to open video manager: %w", err)
	}

	payload, err := c.Pick(ctx)
	if err != nil {
		return pickFailure(err)
	}
	return printJSON(payload)
}
