package publish

import (
	"path"
	"strings"

	"github.com/ashwinm7/postdeck/internal/models"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".mkv":  true,
}

// InferMediaKind classifies an asset from its stored MIME-ish type first,
// falling back to the file extension of its URL. Anything unrecognized is
// treated as an image.
func InferMediaKind(asset *models.MediaAsset) MediaKind {
	fileType := strings.ToLower(asset.FileType)
	switch {
	case strings.HasPrefix(fileType, "video/"):
		return MediaKindVideo
	case strings.HasPrefix(fileType, "image/"):
		return MediaKindImage
	}

	ext := strings.ToLower(path.Ext(stripQuery(asset.FileURL)))
	if videoExtensions[ext] {
		return MediaKindVideo
	}
	return MediaKindImage
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// ExtractLink returns the first bare http(s) URL in the text, or "".
func ExtractLink(text string) string {
	for _, field := range strings.Fields(text) {
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			return strings.TrimRight(field, ".,;:!?)")
		}
	}
	return ""
}

// TruncateTitle cuts the content to the platform's title limit on a rune
// boundary.
func TruncateTitle(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// TitleOrPlaceholder never returns an empty title; platforms reject those.
func TitleOrPlaceholder(s string, limit int) string {
	title := strings.TrimSpace(TruncateTitle(s, limit))
	if title == "" {
		return "(untitled post)"
	}
	return title
}
