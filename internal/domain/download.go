package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// MediaKind is the requested media type
type MediaKind string

const (
	MediaVideo   MediaKind = "video"
	MediaAudio   MediaKind = "audio"
	MediaUnknown MediaKind = "unknown"
)

// Backend identifies the transfer backend
type Backend string

const (
	BackendEmbedded    Backend = "embedded"
	BackendAccelerator Backend = "accelerator"
)

// ContentMode tells whether the stream is kept as-is or re-encoded
type ContentMode string

const (
	ModePassthrough ContentMode = "passthrough"
	ModeReencoded   ContentMode = "reencoded"
)

// FormatOriginal keeps the source container and codecs
const FormatOriginal = "original"

// OriginalMarker is embedded in filenames of passthrough downloads
const OriginalMarker = "[original]"

// Output templates handed to the extractor
const (
	OriginalOutputTemplate = "%(title,id)s[original].%(ext)s"
	SafeOutputTemplate     = "%(title,id)s.%(ext)s"
)

const (
	defaultVideoQuality = "720p"
	defaultAudioQuality = "192"
	defaultAudioFormat  = "mp3"
)

var (
	audioFormats = map[string]bool{FormatOriginal: true, "mp3": true, "wav": true}
	videoFormats = map[string]bool{FormatOriginal: true, "mp4": true, "mkv": true, "avi": true}

	videoQualitySelectors = map[string]string{
		"best":  "best/worst",
		"720p":  "best[height<=720]/best/worst",
		"480p":  "best[height<=480]/best/worst",
		"360p":  "best[height<=360]/best/worst",
		"worst": "worst/best",
	}
)

// DownloadRequest is a validated, normalized submission
type DownloadRequest struct {
	URL            string    `json:"url"`
	MediaKind      MediaKind `json:"media_kind"`
	TargetFormat   string    `json:"target_format"`
	Quality        string    `json:"quality"`
	Backend        Backend   `json:"backend_preference"`
	SessionID      string    `json:"session_id"`
	EmbedThumbnail bool      `json:"embed_thumbnail"`
	EmbedMetadata  bool      `json:"embed_metadata"`
}

// SubmitInput is the raw submission as received from a client
type SubmitInput struct {
	URL            string
	MediaKind      string
	TargetFormat   string
	Quality        string
	Backend        string
	SessionID      string
	EmbedThumbnail bool
	EmbedMetadata  bool
}

// NewDownloadRequest validates raw input and applies the default rules.
// Unsupported audio formats fall back to mp3 without an error.
func NewDownloadRequest(in SubmitInput) (*DownloadRequest, error) {
	rawURL := strings.TrimSpace(in.URL)
	if rawURL == "" {
		return nil, &ValidationError{Field: "url", Message: "missing url"}
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &ValidationError{Field: "url", Message: fmt.Sprintf("%q is not an absolute url", rawURL)}
	}

	kind := MediaKind(strings.ToLower(strings.TrimSpace(in.MediaKind)))
	if kind == "" {
		kind = MediaVideo
	}
	if kind != MediaVideo && kind != MediaAudio {
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("unsupported media kind %q", in.MediaKind)}
	}

	backend, ok := ParseBackend(in.Backend)
	if !ok {
		return nil, &ValidationError{Field: "downloader", Message: fmt.Sprintf("unsupported backend %q", in.Backend)}
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, &ValidationError{Field: "session_id", Message: "missing session_id"}
	}

	req := &DownloadRequest{
		URL:            rawURL,
		MediaKind:      kind,
		Backend:        backend,
		SessionID:      sessionID,
		EmbedThumbnail: in.EmbedThumbnail,
		EmbedMetadata:  in.EmbedMetadata,
	}
	req.TargetFormat = normalizeTargetFormat(kind, in.TargetFormat)
	req.Quality = normalizeQuality(kind, in.Quality)

	return req, nil
}

// ParseBackend accepts the canonical names and the legacy tool names
func ParseBackend(s string) (Backend, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(BackendEmbedded), "ytdlp", "yt-dlp":
		return BackendEmbedded, true
	case string(BackendAccelerator), "aria2c":
		return BackendAccelerator, true
	}
	return "", false
}

func normalizeTargetFormat(kind MediaKind, format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if kind == MediaAudio {
		if format == "" || !audioFormats[format] {
			return defaultAudioFormat
		}
		return format
	}
	if !videoFormats[format] {
		return FormatOriginal
	}
	return format
}

func normalizeQuality(kind MediaKind, quality string) string {
	quality = strings.ToLower(strings.TrimSpace(quality))
	if kind == MediaAudio {
		quality = strings.TrimSuffix(quality, "k")
		if n, err := strconv.Atoi(quality); err != nil || n <= 0 {
			return defaultAudioQuality
		}
		return quality
	}
	if quality == "" {
		return defaultVideoQuality
	}
	return quality
}

// IsOriginal reports whether the request keeps the source stream untouched
func (r *DownloadRequest) IsOriginal() bool {
	return r.TargetFormat == FormatOriginal
}

// Mode returns the content mode of the request
func (r *DownloadRequest) Mode() ContentMode {
	if r.IsOriginal() {
		return ModePassthrough
	}
	return ModeReencoded
}

// OutputTemplate returns the filename template for the request
func (r *DownloadRequest) OutputTemplate() string {
	if r.IsOriginal() {
		return OriginalOutputTemplate
	}
	return SafeOutputTemplate
}

// FormatSelector returns the extractor format selector for the embedded backend
func (r *DownloadRequest) FormatSelector() string {
	if r.MediaKind == MediaAudio {
		if r.IsOriginal() {
			return "bestaudio/best"
		}
		return "bestaudio[ext=m4a]/bestaudio[ext=aac]/bestaudio[ext=mp3]/bestaudio/best"
	}
	if sel, ok := videoQualitySelectors[r.Quality]; ok {
		return sel
	}
	return videoQualitySelectors["best"]
}

// PostProcessing returns the post-processing plan for the request
func (r *DownloadRequest) PostProcessing() PostProcessing {
	if r.IsOriginal() {
		return PostProcessing{Kind: PostProcessNone}
	}
	if r.MediaKind == MediaAudio {
		quality, _ := strconv.Atoi(r.Quality)
		return PostProcessing{
			Kind:           PostProcessExtractAudio,
			Codec:          r.TargetFormat,
			QualityKbps:    quality,
			EmbedThumbnail: r.EmbedThumbnail && r.TargetFormat == "mp3",
			EmbedMetadata:  r.EmbedMetadata,
		}
	}
	return PostProcessing{
		Kind:          PostProcessConvertVideo,
		Container:     r.TargetFormat,
		EmbedMetadata: r.EmbedMetadata,
	}
}

// NeedsFFmpeg reports whether the request cannot complete without ffmpeg
func (r *DownloadRequest) NeedsFFmpeg() bool {
	return r.MediaKind == MediaAudio && !r.IsOriginal()
}

// FormatLabel is a human label for acknowledgements
func (r *DownloadRequest) FormatLabel() string {
	if r.IsOriginal() {
		return "original format"
	}
	return strings.ToUpper(r.TargetFormat) + " format"
}

// PostProcessKind enumerates the recognized post-processing chains
type PostProcessKind string

const (
	PostProcessNone         PostProcessKind = "none"
	PostProcessExtractAudio PostProcessKind = "extract_audio"
	PostProcessConvertVideo PostProcessKind = "convert_video"
)

// PostProcessing is the closed set of post-processing options
type PostProcessing struct {
	Kind           PostProcessKind
	Codec          string // extract_audio
	QualityKbps    int    // extract_audio
	Container      string // convert_video
	EmbedThumbnail bool
	EmbedMetadata  bool
}
