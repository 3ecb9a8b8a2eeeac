package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mmbroker/internal/broker"
	"github.com/standardbeagle/mmbroker/internal/config"
	"github.com/standardbeagle/mmbroker/internal/querystring"
)

func TestApplyLaunchFlags(t *testing.T) {
	fs := pflag.NewFlagSet("pick", pflag.ContinueOnError)
	addLaunchFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--url", "https://media.example.com/manager",
		"--width", "800",
		"--timeout", "45s",
		"--app-mode",
		"--browser", "chromium",
	}))

	cfg := config.DefaultConfig()
	cfg.Relay.Listen = "127.0.0.1:9999"
	applyLaunchFlags(fs, cfg, targetMedia)

	assert.Equal(t, "https://media.example.com/manager", cfg.MediaManager.URL)
	assert.Equal(t, 800, cfg.MediaManager.Width)
	assert.Equal(t, 640, cfg.MediaManager.Height, "unset flag keeps config value")
	assert.Equal(t, 45*time.Second, cfg.Pick.Timeout)
	assert.True(t, cfg.Launcher.AppMode)
	assert.Equal(t, "chromium", cfg.Launcher.Command)
	assert.Equal(t, "127.0.0.1:9999", cfg.Relay.Listen, "unset flag keeps config value")
	assert.Empty(t, cfg.VideoManager.URL)
}

func TestApplyLaunchFlagsVideo(t *testing.T) {
	fs := pflag.NewFlagSet("video", pflag.ContinueOnError)
	addLaunchFlags(fs)
	require.NoError(t, fs.Parse([]string{"--url", "https://video.example.com/m", "--height", "480"}))

	cfg := config.DefaultConfig()
	applyLaunchFlags(fs, cfg, targetVideo)

	assert.Equal(t, "https://video.example.com/m", cfg.VideoManager.URL)
	assert.Equal(t, 480, cfg.VideoManager.Height)
	assert.Equal(t, 1000, cfg.VideoManager.Width)
	assert.Empty(t, cfg.MediaManager.URL)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MediaManager.URL = "https://cms.example.com/admin/media"
	cfg.VideoManager.URL = "https://cms.example.com/video"
	cfg.Relay.AllowedOrigins = []string{"https://cdn.example.com"}

	assert.Equal(t, []string{"https://cdn.example.com", "https://cms.example.com"}, allowedOrigins(cfg))
	assert.Empty(t, allowedOrigins(config.DefaultConfig()))
}

func TestQueryJSON(t *testing.T) {
	params := querystring.Decode("?opener_origin=http://localhost:8000&id=7&tag=a&tag=b&flag")

	data, err := json.Marshal(queryJSON(params))
	require.NoError(t, err)
	assert.Equal(t, `{"opener_origin":"http://localhost:8000","id":7,"tag":["a","b"],"flag":null}`, string(data))
}

func TestWriteJSONKeepsHTMLCharacters(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, queryJSON(querystring.Decode("?next=/a?b=1&tag=<x>"))))
	assert.Contains(t, buf.String(), `"tag": "<x>"`)

	buf.Reset()
	require.NoError(t, writeJSON(&buf, map[string]string{"url": "/media/a&b.png"}))
	assert.Equal(t, "{\n  \"url\": \"/media/a&b.png\"\n}\n", buf.String())
	assert.NotContains(t, buf.String(), `\u00`)
}

func TestReportPayload(t *testing.T) {
	assert.Nil(t, reportPayload("", "", nil))

	assert.Equal(t,
		map[string]any{"id": 7, "url": "https://video.example.com/v/7?a=1", "title": "007 intro", "code": "+7"},
		reportPayload("", "", []string{"id=7", "url=https://video.example.com/v/7?a=1", "title=007 intro", "code=+7"}))

	payload := reportPayload("uploads/cat.png", "A cat", []string{"width=640"})
	assert.Equal(t, "uploads/cat.png", payload["path"])
	assert.Equal(t, "A cat", payload["name"])
	assert.Equal(t, 640, payload["width"])
}

func TestQueryFromArgs(t *testing.T) {
	params := queryFromArgs([]string{"site=http://localhost:8000/", "key=s3cret", "tag=a", "tag=b", "flag"})
	assert.Equal(t, "?site=http://localhost:8000/&key=s3cret&tag=a&tag=b&flag", querystring.Encode(params))
}

func TestPickFailure(t *testing.T) {
	assert.EqualError(t, pickFailure(context.DeadlineExceeded), "timed out waiting for a selection")
	assert.EqualError(t, pickFailure(broker.ErrCancelled), "picker closed before a selection was made")

	other := errors.New("boom")
	assert.Equal(t, other, pickFailure(other))
}
