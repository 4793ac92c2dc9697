// Package static embeds the stylesheet and client scripts served under /assets/.
package static

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:assets/*
var assetsFS embed.FS

// GetFileSystem returns an http.FileSystem for the embedded assets directory.
func GetFileSystem() http.FileSystem {
	fsys, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.FS(fsys)
}

// HasAsset reports whether name exists in the embedded assets directory.
func HasAsset(name string) bool {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	if name == "" {
		return false
	}
	info, err := fs.Stat(assetsFS, path.Join("assets", name))
	return err == nil && !info.IsDir()
}

// ContentType returns the MIME type served for an asset path.
func ContentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".css"):
		return "text/css; charset=utf-8"
	case strings.HasSuffix(name, ".js"):
		return "application/javascript; charset=utf-8"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	case strings.HasSuffix(name, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".ico"):
		return "image/x-icon"
	default:
		return "application/octet-stream"
	}
}
