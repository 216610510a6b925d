package app

import (
	"sort"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ScoringPolicy holds the bonuses applied by FormatScorer
type ScoringPolicy struct {
	// VideoContainerBonus is added to the height of video formats in a preferred container
	VideoContainerBonus float64
	VideoContainers     []string
	// AudioContainerBonus is added to the bitrate of audio formats in a preferred container
	AudioContainerBonus float64
	AudioContainers     []string
}

// DefaultScoringPolicy prefers mp4 video and webm, m4a or mp3 audio
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		VideoContainerBonus: 1000,
		VideoContainers:     []string{"mp4"},
		AudioContainerBonus: 100,
		AudioContainers:     []string{"webm", "m4a", "mp3"},
	}
}

// FormatScorer picks the best directly fetchable variant of a media item
type FormatScorer struct {
	policy ScoringPolicy
}

// NewFormatScorer creates a scorer with the given policy
func NewFormatScorer(policy ScoringPolicy) *FormatScorer {
	return &FormatScorer{policy: policy}
}

// Choose returns the URL and container of the best candidate for kind.
// When no candidate qualifies the top-level URL of info is used if it is
// itself fetchable; otherwise the error wraps domain.ErrNoUsableFormat.
func (s *FormatScorer) Choose(info *domain.MediaInfo, kind domain.MediaKind, sourceURL string) (domain.CandidateFormat, error) {
	type scored struct {
		format domain.CandidateFormat
		score  float64
	}

	var candidates []scored
	for _, f := range info.Formats {
		if !f.HasDirectURL() {
			continue
		}
		switch kind {
		case domain.MediaAudio:
			if !f.HasAudio() {
				continue
			}
			candidates = append(candidates, scored{f, s.audioScore(f)})
		default:
			if !f.HasVideo() || !f.HasAudio() {
				continue
			}
			candidates = append(candidates, scored{f, s.videoScore(f)})
		}
	}

	if len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].score > candidates[j].score
		})
		return withContainer(candidates[0].format, kind), nil
	}

	fallback := domain.CandidateFormat{
		URL:            info.URL,
		Container:      info.Container,
		FileSize:       info.FileSize,
		FileSizeApprox: info.FileSizeApprox,
	}
	if fallback.HasDirectURL() {
		return withContainer(fallback, kind), nil
	}

	return domain.CandidateFormat{}, &domain.ExtractionError{URL: sourceURL, Err: domain.ErrNoUsableFormat}
}

func (s *FormatScorer) videoScore(f domain.CandidateFormat) float64 {
	score := float64(f.Height)
	if contains(s.policy.VideoContainers, f.Container) {
		score += s.policy.VideoContainerBonus
	}
	return score
}

func (s *FormatScorer) audioScore(f domain.CandidateFormat) float64 {
	score := f.AudioBitrate
	if contains(s.policy.AudioContainers, f.Container) {
		score += s.policy.AudioContainerBonus
	}
	return score
}

func withContainer(f domain.CandidateFormat, kind domain.MediaKind) domain.CandidateFormat {
	if f.Container != "" {
		return f
	}
	if kind == domain.MediaAudio {
		f.Container = "webm"
	} else {
		f.Container = "mp4"
	}
	return f
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
