package domain

import "strings"

// CandidateFormat describes one retrievable stream variant
type CandidateFormat struct {
	ID             string  `json:"format_id"`
	Container      string  `json:"ext"`
	VideoCodec     string  `json:"vcodec,omitempty"`
	AudioCodec     string  `json:"acodec,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	AudioBitrate   float64 `json:"abr,omitempty"`
	FileSize       int64   `json:"filesize,omitempty"`
	FileSizeApprox int64   `json:"filesize_approx,omitempty"`
	URL            string  `json:"url,omitempty"`
	Protocol       string  `json:"protocol,omitempty"`
	Resolution     string  `json:"resolution,omitempty"`
}

// HasDirectURL reports whether the variant can be fetched by a plain HTTP client
func (f CandidateFormat) HasDirectURL() bool {
	return strings.HasPrefix(f.URL, "http://") || strings.HasPrefix(f.URL, "https://")
}

// HasVideo reports whether a video codec is present
func (f CandidateFormat) HasVideo() bool {
	return codecPresent(f.VideoCodec)
}

// HasAudio reports whether an audio codec is present
func (f CandidateFormat) HasAudio() bool {
	return codecPresent(f.AudioCodec)
}

// Size returns the exact size if known, else the approximation
func (f CandidateFormat) Size() int64 {
	if f.FileSize > 0 {
		return f.FileSize
	}
	return f.FileSizeApprox
}

func codecPresent(codec string) bool {
	return codec != "" && codec != "none"
}

// MediaInfo is what the extraction collaborator returns for a URL
type MediaInfo struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Duration       float64           `json:"duration"`
	FileSize       int64             `json:"filesize,omitempty"`
	FileSizeApprox int64             `json:"filesize_approx,omitempty"`
	URL            string            `json:"url,omitempty"`
	Container      string            `json:"ext,omitempty"`
	Extractor      string            `json:"extractor,omitempty"`
	Formats        []CandidateFormat `json:"formats"`
}

// EstimatedSize returns the best size guess for the whole download
func (m *MediaInfo) EstimatedSize() int64 {
	if m.FileSize > 0 {
		return m.FileSize
	}
	if m.FileSizeApprox > 0 {
		return m.FileSizeApprox
	}
	for _, f := range m.Formats {
		if s := f.Size(); s > 0 {
			return s
		}
	}
	return 0
}

// DisplayTitle falls back to the id when the title is empty
func (m *MediaInfo) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if m.ID != "" {
		return m.ID
	}
	return "Unknown"
}
