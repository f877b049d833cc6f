package assets

import (
	"mime"
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

// Extensions missing from the builtin table or resolved differently depending
// on the host's mime.types.
var contentTypes = map[string]string{
	".ico":         "image/x-icon",
	".map":         "application/json",
	".txt":         "text/plain; charset=utf-8",
	".webmanifest": "application/manifest+json",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
}

// ContentType derives a MIME type from the extension of p.
func ContentType(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return defaultContentType
	}
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return defaultContentType
}
