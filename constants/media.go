package constants

import "strings"

// MediaKind is the detected kind of an input document.
type MediaKind string

const (
	PDF   MediaKind = "PDF"
	IMAGE MediaKind = "IMAGE"
	TEXT  MediaKind = "TEXT"
)

// AllowedExtensions holds the default allowed file extensions for session ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"txt":  {},
	"md":   {},
	"csv":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToKind maps a file extension to a MediaKind. Unknown extensions are
// treated as text so the pipeline can still attempt extraction.
func MapExtToKind(ext string) MediaKind {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "gif", "bmp":
		return IMAGE
	default:
		return TEXT
	}
}
