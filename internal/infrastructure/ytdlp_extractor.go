package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ytdlpInfo mirrors the subset of `yt-dlp -J` output we consume.
// Numeric fields are floats because yt-dlp emits either form.
type ytdlpInfo struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Duration       float64       `json:"duration"`
	FileSize       float64       `json:"filesize"`
	FileSizeApprox float64       `json:"filesize_approx"`
	URL            string        `json:"url"`
	Ext            string        `json:"ext"`
	Extractor      string        `json:"extractor"`
	Formats        []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	ABR            float64 `json:"abr"`
	FileSize       float64 `json:"filesize"`
	FileSizeApprox float64 `json:"filesize_approx"`
	URL            string  `json:"url"`
	Protocol       string  `json:"protocol"`
	Resolution     string  `json:"resolution"`
}

// YTDLPExtractor resolves metadata by running `yt-dlp -J`
type YTDLPExtractor struct {
	config *domain.ExtractorConfig
	agents *UserAgentPool
	logger *zap.Logger
}

// NewYTDLPExtractor creates a new yt-dlp extractor
func NewYTDLPExtractor(config *domain.ExtractorConfig, agents *UserAgentPool, logger *zap.Logger) *YTDLPExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YTDLPExtractor{config: config, agents: agents, logger: logger}
}

// Name returns the extractor name
func (e *YTDLPExtractor) Name() string {
	return "yt-dlp"
}

// BuildArgs builds the metadata-only command line
func (e *YTDLPExtractor) BuildArgs(url string) []string {
	args := []string{"-J", "--no-playlist", "--no-warnings"}
	if ua := e.agents.Pick(); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	return append(args, url)
}

// Extract runs yt-dlp without downloading and decodes its JSON output
func (e *YTDLPExtractor) Extract(ctx context.Context, url string) (*domain.MediaInfo, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.config.YTDLPBinary, e.BuildArgs(url)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &domain.ExtractionError{URL: url, Err: fmt.Errorf("failed to run yt-dlp: %w", err)}
		}
		msg := lastLines(stderr.String(), 3)
		if msg == "" {
			msg = err.Error()
		}
		return nil, &domain.ExtractionError{URL: url, Err: errors.New(msg)}
	}

	info, err := DecodeMediaInfo(stdout.Bytes())
	if err != nil {
		return nil, &domain.ExtractionError{URL: url, Err: err}
	}

	e.logger.Debug("Metadata extracted",
		zap.String("url", url),
		zap.String("title", info.Title),
		zap.Int("formats", len(info.Formats)))
	return info, nil
}

// DecodeMediaInfo converts `yt-dlp -J` output into MediaInfo
func DecodeMediaInfo(data []byte) (*domain.MediaInfo, error) {
	var raw ytdlpInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	info := &domain.MediaInfo{
		ID:             raw.ID,
		Title:          raw.Title,
		Duration:       raw.Duration,
		FileSize:       int64(raw.FileSize),
		FileSizeApprox: int64(raw.FileSizeApprox),
		URL:            raw.URL,
		Container:      raw.Ext,
		Extractor:      raw.Extractor,
		Formats:        make([]domain.CandidateFormat, 0, len(raw.Formats)),
	}
	for _, f := range raw.Formats {
		info.Formats = append(info.Formats, domain.CandidateFormat{
			ID:             f.FormatID,
			Container:      f.Ext,
			VideoCodec:     f.VCodec,
			AudioCodec:     f.ACodec,
			Width:          int(f.Width),
			Height:         int(f.Height),
			AudioBitrate:   f.ABR,
			FileSize:       int64(f.FileSize),
			FileSizeApprox: int64(f.FileSizeApprox),
			URL:            f.URL,
			Protocol:       f.Protocol,
			Resolution:     f.Resolution,
		})
	}
	return info, nil
}

// lastLines returns up to n trailing non-empty lines joined with "; "
func lastLines(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
