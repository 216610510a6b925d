package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

type stubProbe struct {
	result domain.ProbeResult
	calls  int
}

func (p *stubProbe) Probe(ctx context.Context) domain.ProbeResult {
	p.calls++
	return p.result
}

func request(t *testing.T, backend, kind, format string) *domain.DownloadRequest {
	t.Helper()
	req, err := domain.NewDownloadRequest(domain.SubmitInput{
		URL:          "https://example.com/watch?v=1",
		MediaKind:    kind,
		TargetFormat: format,
		Backend:      backend,
		SessionID:    "s1",
	})
	require.NoError(t, err)
	return req
}

func TestBackendSelector_Select(t *testing.T) {
	tests := []struct {
		name      string
		backend   string
		format    string
		available bool
		expected  domain.Selection
		probed    bool
	}{
		{
			name:     "embedded never probes",
			backend:  "embedded",
			format:   "mp4",
			expected: domain.Selection{Backend: domain.BackendEmbedded, Mode: domain.ModeReencoded},
		},
		{
			name:      "accelerator passthrough runs direct",
			backend:   "accelerator",
			format:    "original",
			available: true,
			probed:    true,
			expected:  domain.Selection{Backend: domain.BackendAccelerator, Mode: domain.ModePassthrough, Direct: true},
		},
		{
			name:      "accelerator re-encode helps the embedded backend",
			backend:   "aria2c",
			format:    "mkv",
			available: true,
			probed:    true,
			expected:  domain.Selection{Backend: domain.BackendAccelerator, Mode: domain.ModeReencoded},
		},
		{
			name:     "missing accelerator downgrades",
			backend:  "accelerator",
			format:   "original",
			probed:   true,
			expected: domain.Selection{Backend: domain.BackendEmbedded, Downgraded: true, Mode: domain.ModePassthrough},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := &stubProbe{result: domain.ProbeResult{Available: tt.available, Message: "not found"}}
			selector := NewBackendSelector(probe, nil)

			sel := selector.Select(context.Background(), request(t, tt.backend, "video", tt.format))

			assert.Equal(t, tt.expected, sel)
			assert.Equal(t, tt.probed, probe.calls > 0)
		})
	}
}

func TestBackendSelector_StartFinishOnly(t *testing.T) {
	probe := &stubProbe{result: domain.ProbeResult{Available: true}}
	selector := NewBackendSelector(probe, nil)

	sel := selector.Select(context.Background(), request(t, "accelerator", "audio", "mp3"))
	assert.True(t, sel.StartFinishOnly())

	sel = selector.Select(context.Background(), request(t, "accelerator", "audio", "original"))
	assert.False(t, sel.StartFinishOnly())
}
