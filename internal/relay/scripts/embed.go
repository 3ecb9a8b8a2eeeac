// Package scripts provides the embedded handshake script picker pages load from the relay.
package scripts

import (
	_ "embed"
	"strconv"
	"strings"
	"sync"
)

var (
	//go:embed core.js
	coreJS string

	//go:embed api.js
	apiJS string
)

// Values substituted into the script's constants.
const (
	Action        = "mediamanager"
	WebSocketPath = "/__mmbroker/ws"
)

var (
	handshakeScript     string
	handshakeScriptOnce sync.Once
)

// Handshake returns the picker-side handshake script. The result is cached after first call.
func Handshake() string {
	handshakeScriptOnce.Do(func() {
		handshakeScript = buildHandshake()
	})
	return handshakeScript
}

func buildHandshake() string {
	var sb strings.Builder

	sb.WriteString("(function() {\n")
	sb.WriteString("  'use strict';\n\n")
	sb.WriteString("  var ACTION = " + strconv.Quote(Action) + ";\n")
	sb.WriteString("  var WS_PATH = " + strconv.Quote(WebSocketPath) + ";\n\n")

	// Core defines send and connect; api calls connect last.
	sb.WriteString(indent(coreJS))
	sb.WriteString("\n")
	sb.WriteString(indent(apiJS))
	sb.WriteString("})();\n")

	return sb.String()
}

func indent(code string) string {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "  " + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
