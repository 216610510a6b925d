package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

type stubMaintenance struct {
	clear  *domain.CacheClearResult
	update *domain.UpdateResult
	err    error
}

func (m *stubMaintenance) ClearCache(ctx context.Context) (*domain.CacheClearResult, error) {
	return m.clear, m.err
}

func (m *stubMaintenance) Update(ctx context.Context) (*domain.UpdateResult, error) {
	return m.update, m.err
}

type stubConnection struct {
	result domain.ConnectionResult
}

func (c *stubConnection) Test(ctx context.Context) domain.ConnectionResult {
	return c.result
}

func newDiagnostics(t *testing.T, ext domain.Extractor, maint *stubMaintenance) *DiagnosticsService {
	t.Helper()
	config := domain.DefaultConfig()
	store := newMemStore()
	store.Put("s1", domain.QueuedEvent())

	return NewDiagnosticsService(DiagnosticsDeps{
		Dispatcher:       NewTaskDispatcher(3, func(context.Context, *domain.Task) {}, nil),
		Sessions:         store,
		Extractor:        ext,
		AcceleratorProbe: &stubProbe{result: domain.ProbeResult{Available: true, Version: "aria2 version 1.37.0"}},
		FFmpegProbe:      &stubProbe{result: domain.ProbeResult{Available: false, Message: "ffmpeg not found in PATH"}},
		Maintenance:      maint,
		Connection: &stubConnection{result: domain.ConnectionResult{
			Status: "403_error", StatusCode: 403, Latency: 20 * time.Millisecond,
		}},
	}, config, nil)
}

func TestDiagnosticsService_PerformanceStatus(t *testing.T) {
	svc := newDiagnostics(t, &stubExtractor{}, &stubMaintenance{})

	status := svc.PerformanceStatus(context.Background())

	assert.Equal(t, 6, status.Workers)
	assert.Equal(t, 100*time.Millisecond, status.ProgressThrottle)
	assert.Equal(t, 16, status.Split)
	assert.Equal(t, "1M", status.MinSplitSize)
	assert.True(t, status.Accelerator.Available)
	assert.False(t, status.FFmpeg.Available)
	assert.Equal(t, 1, status.Sessions)
	assert.Equal(t, 0, status.QueueLength)
	assert.Equal(t, "stub", status.Extractor)
}

func TestDiagnosticsService_AcceleratorAndConnection(t *testing.T) {
	svc := newDiagnostics(t, &stubExtractor{}, &stubMaintenance{})

	assert.Equal(t, "aria2 version 1.37.0", svc.AcceleratorStatus(context.Background()).Version)
	assert.Equal(t, "403_error", svc.ConnectionTest(context.Background()).Status)
}

func TestDiagnosticsService_DebugFormats(t *testing.T) {
	info := &domain.MediaInfo{
		Title:     "clip",
		Extractor: "generic",
		Formats: []domain.CandidateFormat{
			{ID: "hls", URL: "m3u8://manifest"},
			{ID: "18", URL: "https://cdn.example.com/18"},
			{ID: "22", URL: "http://cdn.example.com/22"},
		},
	}
	svc := newDiagnostics(t, &stubExtractor{info: info}, &stubMaintenance{})

	report, err := svc.DebugFormats(context.Background(), "https://example.com/v")

	require.NoError(t, err)
	assert.Equal(t, "clip", report.Title)
	assert.Equal(t, 2, report.Usable)
	require.Len(t, report.Formats, 3)
	assert.False(t, report.Formats[0].HasValidURL)
	assert.True(t, report.Formats[1].HasValidURL)
}

func TestDiagnosticsService_DebugFormatsErrors(t *testing.T) {
	extErr := &domain.ExtractionError{URL: "https://example.com/v", Err: errors.New("unsupported")}
	svc := newDiagnostics(t, &stubExtractor{err: extErr}, &stubMaintenance{})

	_, err := svc.DebugFormats(context.Background(), "")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = svc.DebugFormats(context.Background(), "https://example.com/v")
	assert.Equal(t, domain.KindExtraction, domain.KindOf(err))
}

func TestDiagnosticsService_Maintenance(t *testing.T) {
	maint := &stubMaintenance{
		clear:  &domain.CacheClearResult{ToolCleared: true, Message: "cache cleared"},
		update: &domain.UpdateResult{Version: "2024.03.10"},
	}
	svc := newDiagnostics(t, &stubExtractor{}, maint)

	res, err := svc.ClearCache(context.Background())
	require.NoError(t, err)
	assert.True(t, res.ToolCleared)

	up, err := svc.UpdateExtractor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024.03.10", up.Version)

	maint.err = errors.New("permission denied")
	_, err = svc.ClearCache(context.Background())
	assert.ErrorContains(t, err, "failed to clear cache")
	_, err = svc.UpdateExtractor(context.Background())
	assert.Error(t, err)
}

func TestDiagnosticsService_FFmpegStatus(t *testing.T) {
	svc := newDiagnostics(t, &stubExtractor{}, &stubMaintenance{})

	res := svc.FFmpegStatus(context.Background())
	assert.False(t, res.Available)
	assert.Equal(t, "ffmpeg not found in PATH", res.Message)
}

func TestDiagnosticsService_ExtractionTest(t *testing.T) {
	tests := []struct {
		name    string
		ext     *stubExtractor
		status  string
		title   string
		formats int
	}{
		{
			name: "ok",
			ext: &stubExtractor{info: &domain.MediaInfo{
				Title:   "test clip",
				Formats: []domain.CandidateFormat{{ID: "18"}, {ID: "22"}},
			}},
			status:  "ok",
			title:   "test clip",
			formats: 2,
		},
		{
			name: "forbidden",
			ext: &stubExtractor{err: &domain.ExtractionError{
				URL: "u", Err: errors.New("ERROR: unable to download webpage: HTTP Error 403: Forbidden"),
			}},
			status: "403_error",
		},
		{
			name:   "other failure",
			ext:    &stubExtractor{err: &domain.ExtractionError{URL: "u", Err: errors.New("unsupported URL")}},
			status: "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newDiagnostics(t, tt.ext, &stubMaintenance{})

			check := svc.ExtractionTest(context.Background())

			assert.Equal(t, domain.DefaultConfig().Diagnostics.TestURL, check.URL)
			assert.Equal(t, tt.status, check.Status)
			assert.Equal(t, tt.title, check.Title)
			assert.Equal(t, tt.formats, check.Formats)
			if tt.status != "ok" {
				assert.NotEmpty(t, check.Error)
			}
		})
	}
}

func TestDiagnosticsService_Troubleshooting(t *testing.T) {
	svc := newDiagnostics(t, &stubExtractor{}, &stubMaintenance{})

	guide := svc.Troubleshooting()

	require.NotEmpty(t, guide.Forbidden)
	require.NotEmpty(t, guide.Connection)
	for i, step := range append(guide.Forbidden, guide.Connection...) {
		assert.NotEmpty(t, step.Title, "step %d", i)
		if step.Endpoint != "" {
			assert.True(t, strings.HasPrefix(step.Endpoint, "/api/v1/"), step.Endpoint)
		}
	}
}
