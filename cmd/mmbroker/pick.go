package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/relay"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Open the media manager and print the picked file",
	Long: `Open the media manager in a browser window and wait for the user to pick a file.

The selection is printed as JSON: the insertable /media/ URL, its alt text, and the
file record. The window closes after the pick unless --no-auto-close is given.

Examples:
  mmbroker pick --url https://cms.example.com/admin/media
  mmbroker pick --timeout 2m --app-mode`,
	RunE: runPick,
}

func init() {
	addLaunchFlags(pickCmd.Flags())
	pickCmd.Flags().Bool("no-auto-close", false, "Leave the picker open after the selection")
}

func runPick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyLaunchFlags(cmd.Flags(), cfg, targetMedia)
	if noAutoClose, _ := cmd.Flags().GetBool("no-auto-close"); noAutoClose {
		cfg.MediaManager.AutoClose = false
	}
	if cfg.MediaManager.URL == "" {
		return fmt.Errorf("no media manager URL (use --url or set media-manager url in mmbroker.kdl)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := startRelay(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopRelay(srv)

	c, err := newMediaController(cfg, srv, newLauncher(cfg))
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
		return fmt.Errorf("failed to open media manager: %w", err)
	}

	sel, err := c.Pick(ctx)
	if err != nil {
		return pickFailure(err)
	}
	return printJSON(sel)
}

func stopRelay(srv *relay.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func pickFailure(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("timed out waiting for a selection")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("interrupted")
	case errors.Is(err, broker.ErrCancelled):
		return fmt.Errorf("picker closed before a selection was made")
	default:
		return err
	}
}

func printJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

// writeJSON writes v indented, leaving &, < and > unescaped.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
