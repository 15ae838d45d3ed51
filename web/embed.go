// Package web embeds the HTML templates.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var content embed.FS

// Templates returns the template tree rooted at templates/.
func Templates() fs.FS {
	sub, err := fs.Sub(content, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}
