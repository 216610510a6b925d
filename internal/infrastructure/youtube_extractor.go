package infrastructure

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

var youtubeHosts = []string{"youtube.com", "youtu.be"}

// IsYouTubeURL reports whether the URL points at a YouTube host
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range youtubeHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// YouTubeExtractor resolves YouTube metadata natively, without a child process
type YouTubeExtractor struct {
	client youtube.Client
	logger *zap.Logger
}

// NewYouTubeExtractor creates a native YouTube extractor
func NewYouTubeExtractor(httpClient *http.Client, logger *zap.Logger) *YouTubeExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YouTubeExtractor{
		client: youtube.Client{HTTPClient: httpClient},
		logger: logger,
	}
}

// Name returns the extractor name
func (e *YouTubeExtractor) Name() string {
	return "youtube"
}

// Extract fetches the video description and resolves a URL for every format
func (e *YouTubeExtractor) Extract(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	video, err := e.client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return nil, &domain.ExtractionError{URL: rawURL, Err: err}
	}

	info := &domain.MediaInfo{
		ID:        video.ID,
		Title:     video.Title,
		Duration:  video.Duration.Seconds(),
		Extractor: e.Name(),
		Formats:   make([]domain.CandidateFormat, 0, len(video.Formats)),
	}

	for i := range video.Formats {
		f := &video.Formats[i]
		cf := convertYouTubeFormat(f)
		if cf.URL == "" {
			// ciphered
			streamURL, err := e.client.GetStreamURLContext(ctx, video, f)
			if err != nil {
				e.logger.Debug("Skipping unresolvable format",
					zap.Int("itag", f.ItagNo),
					zap.Error(err))
				continue
			}
			cf.URL = streamURL
		}
		info.Formats = append(info.Formats, cf)
	}

	return info, nil
}

// convertYouTubeFormat maps a YouTube format onto a candidate.
// Codec presence comes from the MIME type, e.g. `video/mp4; codecs="avc1.64001F, mp4a.40.2"`.
func convertYouTubeFormat(f *youtube.Format) domain.CandidateFormat {
	mediaType, params, err := mime.ParseMediaType(f.MimeType)
	if err != nil {
		mediaType = f.MimeType
	}
	major, container, _ := strings.Cut(mediaType, "/")

	var videoCodec, audioCodec string
	codecs := strings.Split(params["codecs"], ",")
	switch major {
	case "video":
		videoCodec = strings.TrimSpace(codecs[0])
		if len(codecs) > 1 {
			audioCodec = strings.TrimSpace(codecs[1])
		} else if f.AudioChannels > 0 {
			audioCodec = "unknown"
		} else {
			audioCodec = "none"
		}
	case "audio":
		videoCodec = "none"
		audioCodec = strings.TrimSpace(codecs[0])
	}

	abr := 0.0
	if major == "audio" {
		bitrate := f.AverageBitrate
		if bitrate == 0 {
			bitrate = f.Bitrate
		}
		abr = float64(bitrate) / 1000
	}

	if container == "" {
		container = "mp4"
	}

	return domain.CandidateFormat{
		ID:           strconv.Itoa(f.ItagNo),
		Container:    container,
		VideoCodec:   videoCodec,
		AudioCodec:   audioCodec,
		Width:        f.Width,
		Height:       f.Height,
		AudioBitrate: abr,
		FileSize:     f.ContentLength,
		URL:          f.URL,
		Protocol:     "https",
		Resolution:   f.QualityLabel,
	}
}

// CompositeExtractor prefers the native YouTube extractor for YouTube hosts
// and falls back to the general extractor on any error.
type CompositeExtractor struct {
	native   domain.Extractor
	fallback domain.Extractor
	logger   *zap.Logger
}

// NewCompositeExtractor creates a composite extractor; a nil native extractor disables it
func NewCompositeExtractor(native, fallback domain.Extractor, logger *zap.Logger) *CompositeExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompositeExtractor{native: native, fallback: fallback, logger: logger}
}

// Name returns the extractor name
func (c *CompositeExtractor) Name() string {
	if c.native == nil {
		return c.fallback.Name()
	}
	return c.native.Name() + "+" + c.fallback.Name()
}

// Extract tries the native extractor first for matching hosts
func (c *CompositeExtractor) Extract(ctx context.Context, rawURL string) (*domain.MediaInfo, error) {
	if c.native != nil && IsYouTubeURL(rawURL) {
		info, err := c.native.Extract(ctx, rawURL)
		if err == nil {
			return info, nil
		}
		c.logger.Warn("Native extraction failed, falling back",
			zap.String("url", rawURL),
			zap.String("fallback", c.fallback.Name()),
			zap.Error(err))
	}
	return c.fallback.Extract(ctx, rawURL)
}
