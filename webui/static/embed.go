// Package static provides the embedded assets for the ADEI Explorer.
// This file uses Go's embed directive to bundle the single-page app into
// the binary.
package static

import (
	"embed"
	"io/fs"
)

// StaticFS contains the embedded Explorer assets:
//   - index.html (the single-page app shell)
//   - css/explorer.css (dark theme styling)
//   - js/websocket.js (reconnecting WebSocket client)
//   - js/explorer.js (chat panel and dashboard views)
//
//go:embed index.html css js
var StaticFS embed.FS

// GetFS returns the embedded filesystem for use with the asset handler.
func GetFS() fs.FS {
	return StaticFS
}

// ReadFile reads a file from the embedded filesystem.
func ReadFile(name string) ([]byte, error) {
	return StaticFS.ReadFile(name)
}
