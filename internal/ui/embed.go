// Package ui embeds the dashboard page served at the root path.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/**
var assets embed.FS

// FS returns the dashboard assets rooted at static/.
func FS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		return http.FS(assets)
	}
	return http.FS(sub)
}

// Index returns the raw dashboard page.
func Index() ([]byte, error) {
	return assets.ReadFile("static/index.html")
}
