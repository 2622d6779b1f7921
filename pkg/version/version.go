package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Version is the release of the client, taken from the VERSION file
var Version = strings.TrimSpace(raw)

// Get returns the current version of the application
func Get() string {
	return Version
}

// UserAgent is sent with every HTTP request and websocket handshake
func UserAgent() string {
	return "catclient-go/" + Version
}
