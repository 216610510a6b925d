package domain

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MediaFile is a persisted artifact in the download directory
type MediaFile struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	Modified   time.Time `json:"modified"`
	MediaKind  MediaKind `json:"type"`
	IsOriginal bool      `json:"is_original"`
}

var (
	audioExtensions = map[string]bool{
		".mp3": true, ".wav": true, ".m4a": true, ".aac": true,
		".ogg": true, ".opus": true, ".flac": true, ".webm": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	}

	unsafeTitleChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
)

// MaxTitleBytes caps the title part of a filename, leaving room for the
// marker and extension within the usual 255-byte name limit.
const MaxTitleBytes = 200

// MediaKindFromName infers the media kind from a file extension.
// Audio wins for extensions in both sets (webm).
func MediaKindFromName(name string) MediaKind {
	ext := strings.ToLower(filepath.Ext(name))
	if audioExtensions[ext] {
		return MediaAudio
	}
	if videoExtensions[ext] {
		return MediaVideo
	}
	return MediaUnknown
}

// IsOriginalName reports whether a filename carries the passthrough marker
func IsOriginalName(name string) bool {
	return strings.Contains(name, OriginalMarker)
}

// SanitizeTitle replaces characters that are unsafe in filenames and caps
// the result at MaxTitleBytes without splitting a UTF-8 sequence.
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(unsafeTitleChars.ReplaceAllString(title, "_"))
	if len(title) <= MaxTitleBytes {
		return title
	}
	cut := MaxTitleBytes
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return strings.TrimSpace(title[:cut])
}

// PassthroughFilename builds the filename for a direct accelerator download
func PassthroughFilename(title, ext string) string {
	return SanitizeTitle(title) + OriginalMarker + "." + ext
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
