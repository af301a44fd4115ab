//go:build embedwebui

package webui

import (
	"embed"
	"io/fs"
)

// content holds the built dashboard assets under dist/.
//
// NOTE: Build with `-tags embedwebui` to serve the dashboard from the
// binary; without the tag the API runs headless.
//
//go:embed dist/*
var content embed.FS

func Enabled() bool {
	return true
}

func FS() fs.FS {
	return content
}
