// Package arcade embeds the browser shell served by cmd/server.
package arcade

import "embed"

// WebFS holds the static lobby and session pages.
//
//go:embed web
var WebFS embed.FS
