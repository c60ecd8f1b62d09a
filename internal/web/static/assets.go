// Package static embeds the chat widget assets.
package static

import (
	"embed"
	"net/http"
)

//go:embed index.html app.js styles.css
var assets embed.FS

// Handler serves the embedded assets.
func Handler() http.Handler {
	return http.FileServerFS(assets)
}

// Index returns the chat page markup.
func Index() ([]byte, error) {
	return assets.ReadFile("index.html")
}
