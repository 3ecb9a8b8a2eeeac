package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/mmbroker/internal/picker"
	"github.com/standardbeagle/mmbroker/internal/protocol"
	"github.com/standardbeagle/mmbroker/internal/relay"
)

var pickerCmd = &cobra.Command{
	Use:   "picker",
	Short: "Act as a picker against a running opener",
	Long: `Run the picker side of the handshake from the command line.

Pass the launch URL an opener would open (it carries opener_origin). The command
announces itself, optionally reports a file, prints every control message from the
opener, and exits when the opener closes it or on interrupt.

With --keyed the launch URL carries site, key and model instead, and the report is
sent as a model-keyed payload built from --select and --field.

Examples:
  mmbroker picker --url 'https://cms.example.com/manager?opener_origin=http://127.0.0.1:41234'
  mmbroker picker --url '...' --select uploads/cat.png --name "A cat"
  mmbroker picker --keyed --url 'https://video.example.com/m?site=http://127.0.0.1:41234/&key=k&model=videomanager' \
    --field id=7 --field url=https://video.example.com/v/7`,
	RunE: runPicker,
}

func init() {
	pickerCmd.Flags().String("url", "", "Launch URL including opener_origin, or site and model with --keyed (required)")
	pickerCmd.Flags().String("select", "", "File path to report as the selection")
	pickerCmd.Flags().String("name", "", "File name (alt text) for --select")
	pickerCmd.Flags().String("origin", "", "Origin header to present (default: the launch URL's origin)")
	pickerCmd.Flags().Bool("keyed", false, "Speak the keyed protocol (site/key/model launch parameters)")
	pickerCmd.Flags().StringArray("field", nil, "Extra report field as key=value (repeatable; integers are sent as numbers)")
	pickerCmd.Flags().Duration("wait", 10*time.Second, "How long to wait for the opener after --select (0 = until closed)")
	pickerCmd.MarkFlagRequired("url")
}

func runPicker(cmd *cobra.Command, args []string) error {
	rawURL, _ := cmd.Flags().GetString("url")
	selectPath, _ := cmd.Flags().GetString("select")
	name, _ := cmd.Flags().GetString("name")
	origin, _ := cmd.Flags().GetString("origin")
	wait, _ := cmd.Flags().GetDuration("wait")
	keyed, _ := cmd.Flags().GetBool("keyed")
	fields, _ := cmd.Flags().GetStringArray("field")

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid launch URL: %w", err)
	}
	if origin == "" {
		origin = relay.OriginOf(rawURL)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	closed := make(chan struct{}, 1)
	dialer := picker.WebSocketDialer{Origin: origin}
	h := picker.New(u.RawQuery, dialer)
	if keyed {
		h = picker.NewKeyed(u.RawQuery, dialer)
	}
	h.OnMessage = func(env protocol.Envelope) {
		_ = printJSON(env)
		if env.Msg == protocol.KindClose {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	}

	if err := h.Start(ctx); err != nil {
		return err
	}
	defer h.Stop()
	fmt.Fprintf(cmd.ErrOrStderr(), "connected to %s\n", h.OpenerOrigin())

	var timeout <-chan time.Time
	if payload := reportPayload(selectPath, name, fields); payload != nil {
		if err := h.Send(payload); err != nil {
			return fmt.Errorf("failed to send selection: %w", err)
		}
		if wait > 0 {
			timeout = time.After(wait)
		}
	}

	select {
	case <-ctx.Done():
	case <-closed:
	case <-h.Done():
		// The opener drops the link right after asking us to close.
		select {
		case <-closed:
			return nil
		default:
		}
		return fmt.Errorf("opener went away")
	case <-timeout:
	}
	return nil
}

// reportPayload builds the selection report from --select/--name and --field values.
// It returns nil when there is nothing to report.
func reportPayload(path, name string, fields []string) map[string]any {
	var payload map[string]any
	if path != "" {
		payload = protocol.File{Path: path, Name: name}.Payload()
	}
	for _, f := range fields {
		key, value, _ := strings.Cut(f, "=")
		if payload == nil {
			payload = make(map[string]any)
		}
		payload[key] = fieldValue(value)
	}
	return payload
}

// fieldValue sends digit-only values as numbers.
func fieldValue(s string) any {
	if s != "" && strings.Trim(s, "0123456789") == "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return s
}
