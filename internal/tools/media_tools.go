package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/protocol"
	"github.com/standardbeagle/mmbroker/internal/relay"
)

// MediaTools exposes the picker controllers as MCP tools. Either controller may be nil
// when its manager is not configured.
type MediaTools struct {
	Media *broker.Controller
	Video *broker.KeyedController
	Relay *relay.Server

	// Timeout is the default pick timeout; 0 waits until the client cancels.
	Timeout time.Duration
}

// MediaInput represents input for the media tool.
type MediaInput struct {
	Action         string `json:"action" jsonschema:"Action: open, close, status, pick"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"Seconds to wait for a selection (pick only, default from config)"`
	AutoClose      *bool  `json:"auto_close,omitempty" jsonschema:"Close the picker after the selection (pick only, default from config)"`
}

// MediaOutput represents output from the media tool.
type MediaOutput struct {
	State     string         `json:"state,omitempty"`
	Active    bool           `json:"active,omitempty"`
	HasWindow bool           `json:"has_window,omitempty"`
	LaunchURL string         `json:"launch_url,omitempty"`
	LastError string         `json:"last_error,omitempty"`
	URL       string         `json:"url,omitempty"`
	Alt       string         `json:"alt,omitempty"`
	File      *protocol.File `json:"file,omitempty"`
	Relay     *relay.Stats   `json:"relay,omitempty"`
	Success   bool           `json:"success,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// VideoInput represents input for the video tool.
type VideoInput struct {
	Action         string `json:"action" jsonschema:"Action: open, close, status, pick"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"Seconds to wait for a selection (pick only, default from config)"`
}

// VideoOutput represents output from the video tool.
type VideoOutput struct {
	State     string         `json:"state,omitempty"`
	Active    bool           `json:"active,omitempty"`
	HasWindow bool           `json:"has_window,omitempty"`
	LaunchURL string         `json:"launch_url,omitempty"`
	LastError string         `json:"last_error,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Relay     *relay.Stats   `json:"relay,omitempty"`
	Success   bool           `json:"success,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// RegisterMediaTools registers the media and video MCP tools with the server.
func RegisterMediaTools(server *mcp.Server, mt *MediaTools) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "media",
		Description: `Open the media manager and let the user pick a file.

Actions:
  open: Launch the media manager window (focuses it if already open)
  close: Close the window and discard any pending pick
  status: Connection state of the media manager
  pick: Open the manager and wait for the user's selection

A pick returns the insertable URL (/media/<path>) and the file's name as alt text.

Examples:
  media {action: "pick"}
  media {action: "pick", timeout_seconds: 60, auto_close: false}
  media {action: "status"}
  media {action: "close"}`,
	}, mt.makeMediaHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name: "video",
		Description: `Open the video manager and let the user pick a video.

Actions:
  open: Launch the video manager window (focuses it if already open)
  close: Close the window and discard any pending pick
  status: Connection state of the video manager
  pick: Open the manager and wait for the selection

A pick returns the payload sent by the video manager unchanged. The window always
closes after a selection.

Examples:
  video {action: "pick"}
  video {action: "status"}`,
	}, mt.makeVideoHandler())
}

// makeMediaHandler creates a handler for the media tool.
func (mt *MediaTools) makeMediaHandler() func(context.Context, *mcp.CallToolRequest, MediaInput) (*mcp.CallToolResult, MediaOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input MediaInput) (*mcp.CallToolResult, MediaOutput, error) {
		if mt.Media == nil {
			return errorResult("media manager not configured (set media-manager url in mmbroker.kdl)"), MediaOutput{}, nil
		}

		switch input.Action {
		case "open":
			mt.Media.Open()
			if err := mt.Media.LastError(); err != nil {
				return errorResult(fmt.Sprintf("failed to open media manager: %v", err)), mt.mediaStatus(), nil
			}
			output := mt.mediaStatus()
			output.Success = true
			output.Message = "Media manager opening"
			return nil, output, nil

		case "close":
			mt.Media.Close()
			output := mt.mediaStatus()
			output.Success = true
			output.Message = "Media manager closed"
			return nil, output, nil

		case "status":
			return nil, mt.mediaStatus(), nil

		case "pick":
			return mt.handleMediaPick(ctx, input)

		default:
			return errorResult(fmt.Sprintf("unknown action: %s (use: open, close, status, pick)", input.Action)), MediaOutput{}, nil
		}
	}
}

func (mt *MediaTools) handleMediaPick(ctx context.Context, input MediaInput) (*mcp.CallToolResult, MediaOutput, error) {
	ctx, cancel := mt.pickContext(ctx, input.TimeoutSeconds)
	defer cancel()

	// Surface launch failures now rather than after the timeout.
	mt.Media.Open()
	if err := mt.Media.LastError(); err != nil {
		return errorResult(fmt.Sprintf("failed to open media manager: %v", err)), mt.mediaStatus(), nil
	}

	var opts []broker.RequestOption
	if input.AutoClose != nil {
		opts = append(opts, broker.WithAutoClose(*input.AutoClose))
	}

	sel, err := mt.Media.Pick(ctx, opts...)
	if err != nil {
		return pickError(err, "media"), mt.mediaStatus(), nil
	}

	output := mt.mediaStatus()
	output.Success = true
	output.URL = sel.URL
	output.Alt = sel.Meta.Alt
	file := sel.File
	output.File = &file
	return nil, output, nil
}

func (mt *MediaTools) mediaStatus() MediaOutput {
	output := MediaOutput{
		State:     mt.Media.State().String(),
		Active:    mt.Media.Active(),
		HasWindow: mt.Media.HasWindow(),
		LaunchURL: mt.Media.LaunchURL(),
		Relay:     mt.relayStats(),
	}
	if err := mt.Media.LastError(); err != nil {
		output.LastError = err.Error()
	}
	return output
}

// makeVideoHandler creates a handler for the video tool.
func (mt *MediaTools) makeVideoHandler() func(context.Context, *mcp.CallToolRequest, VideoInput) (*mcp.CallToolResult, VideoOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input VideoInput) (*mcp.CallToolResult, VideoOutput, error) {
		if mt.Video == nil {
			return errorResult("video manager not configured (set video-manager url and key in mmbroker.kdl)"), VideoOutput{}, nil
		}

		switch input.Action {
		case "open":
			mt.Video.Open()
			if err := mt.Video.LastError(); err != nil {
				return errorResult(fmt.Sprintf("failed to open video manager: %v", err)), mt.videoStatus(), nil
			}
			output := mt.videoStatus()
			output.Success = true
			output.Message = "Video manager opening"
			return nil, output, nil

		case "close":
			mt.Video.Close()
			output := mt.videoStatus()
			output.Success = true
			output.Message = "Video manager closed"
			return nil, output, nil

		case "status":
			return nil, mt.videoStatus(), nil

		case "pick":
			ctx, cancel := mt.pickContext(ctx, input.TimeoutSeconds)
			defer cancel()

			mt.Video.Open()
			if err := mt.Video.LastError(); err != nil {
				return errorResult(fmt.Sprintf("failed to open video manager: %v", err)), mt.videoStatus(), nil
			}

			payload, err := mt.Video.Pick(ctx)
			if err != nil {
				return pickError(err, "video"), mt.videoStatus(), nil
			}
			output := mt.videoStatus()
			output.Success = true
			output.Payload = payload
			return nil, output, nil

		default:
			return errorResult(fmt.Sprintf("unknown action: %s (use: open, close, status, pick)", input.Action)), VideoOutput{}, nil
		}
	}
}

func (mt *MediaTools) videoStatus() VideoOutput {
	output := VideoOutput{
		State:     mt.Video.State().String(),
		Active:    mt.Video.Active(),
		HasWindow: mt.Video.HasWindow(),
		LaunchURL: mt.Video.LaunchURL(),
		Relay:     mt.relayStats(),
	}
	if err := mt.Video.LastError(); err != nil {
		output.LastError = err.Error()
	}
	return output
}

func (mt *MediaTools) relayStats() *relay.Stats {
	if mt.Relay == nil {
		return nil
	}
	stats := mt.Relay.Stats()
	return &stats
}

// pickContext applies the per-call timeout, falling back to the configured default.
func (mt *MediaTools) pickContext(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	timeout := mt.Timeout
	if seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func pickError(err error, manager string) *mcp.CallToolResult {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorResult(fmt.Sprintf("timed out waiting for a %s selection (the picker stays open)", manager))
	case errors.Is(err, broker.ErrSuperseded):
		return errorResult(fmt.Sprintf("%s pick superseded by a newer request", manager))
	case errors.Is(err, broker.ErrCancelled):
		return errorResult(fmt.Sprintf("%s picker closed before a selection was made", manager))
	default:
		return errorResult(fmt.Sprintf("%s pick failed: %v", manager, err))
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
