package publish

import (
	"testing"

	"github.com/ashwinm7/postdeck/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestInferMediaKind(t *testing.T) {
	tests := []struct {
		name     string
		fileType string
		fileURL  string
		want     MediaKind
	}{
		{"video mime", "video/mp4", "https://cdn.example.com/a", MediaKindVideo},
		{"image mime", "image/png", "https://cdn.example.com/a", MediaKindImage},
		{"mp4 extension", "", "https://cdn.example.com/a.mp4", MediaKindVideo},
		{"mov extension", "", "https://cdn.example.com/a.mov", MediaKindVideo},
		{"avi extension", "", "https://cdn.example.com/a.avi", MediaKindVideo},
		{"webm extension", "", "https://cdn.example.com/a.webm", MediaKindVideo},
		{"mkv extension", "", "https://cdn.example.com/a.mkv", MediaKindVideo},
		{"extension with query string", "", "https://cdn.example.com/a.mp4?sig=abc", MediaKindVideo},
		{"jpg extension", "", "https://cdn.example.com/a.jpg", MediaKindImage},
		{"no hints defaults to image", "", "https://cdn.example.com/a", MediaKindImage},
		{"mime wins over extension", "image/gif", "https://cdn.example.com/a.mp4", MediaKindImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := &models.MediaAsset{FileType: tt.fileType, FileURL: tt.fileURL}
			assert.Equal(t, tt.want, InferMediaKind(asset))
		})
	}
}

func TestExtractLink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bare url", "Check this out https://example.com/x", "https://example.com/x"},
		{"trailing punctuation", "Read https://example.com/post.", "https://example.com/post"},
		{"http scheme", "see http://example.com", "http://example.com"},
		{"no url", "just some text", ""},
		{"first of several", "https://a.example.com and https://b.example.com", "https://a.example.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLink(tt.text))
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "hello", TruncateTitle("hello", 10))
	assert.Equal(t, "hel", TruncateTitle("hello", 3))
	// Multibyte content must cut on a rune boundary, not mid-codepoint.
	assert.Equal(t, "héll", TruncateTitle("héllo", 4))
}

func TestTitleOrPlaceholder(t *testing.T) {
	assert.Equal(t, "my post", TitleOrPlaceholder("my post", 300))
	assert.Equal(t, "(untitled post)", TitleOrPlaceholder("", 300))
	assert.Equal(t, "(untitled post)", TitleOrPlaceholder("   ", 300))
}
