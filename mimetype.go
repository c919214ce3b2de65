package epub3

import (
	"path"
	"strings"
)

// mimetypeContent is the required content of the fixed "mimetype" entry.
const mimetypeContent = "application/epub+zip"

// defaultMediaType is used when an href's extension is not recognized.
const defaultMediaType = "application/octet-stream"

// extToMediaType maps lowercase file extensions to media types. Core EPUB
// media types per https://www.w3.org/TR/epub/#sec-core-media-types plus the
// common types publications reference in practice.
var extToMediaType = map[string]string{
	".css":   "text/css",
	".epub":  "application/epub+zip",
	".gif":   "image/gif",
	".htm":   "text/html",
	".html":  "text/html",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript",
	".json":  "application/json",
	".m4a":   "audio/mp4",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
	".ncx":   "application/x-dtbncx+xml",
	".oga":   "audio/ogg",
	".ogg":   "application/ogg",
	".opus":  "audio/opus",
	".otf":   "font/otf",
	".pdf":   "application/pdf",
	".pls":   "application/pls+xml",
	".png":   "image/png",
	".smil":  "application/smil+xml",
	".svg":   "image/svg+xml",
	".ttf":   "font/ttf",
	".txt":   "text/plain",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".xht":   "application/xhtml+xml",
	".xhtml": "application/xhtml+xml",
	".xml":   "application/xml",
}

// InferMediaType guesses a media type from an href's extension, falling back
// to application/octet-stream for unknown extensions.
func InferMediaType(href string) string {
	ext := strings.ToLower(path.Ext(href))
	if mt, ok := extToMediaType[ext]; ok {
		return mt
	}
	return defaultMediaType
}
