// Package web provides the embedded HTML templates.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templateFiles embed.FS

// GetFileSystem returns the embedded filesystem with the templates folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(templateFiles, "templates")
}
