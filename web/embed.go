// Package web embeds the static target picker page.
package web

import (
	"embed"
	"io/fs"
)

//go:embed picker/index.html
var assets embed.FS

// Picker returns the picker page file system rooted at its directory.
func Picker() fs.FS {
	sub, err := fs.Sub(assets, "picker")
	if err != nil {
		// The path is fixed at compile time.
		panic(err)
	}
	return sub
}
