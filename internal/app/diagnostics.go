package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

// ExtractorMaintenance is the extractor self-maintenance surface
type ExtractorMaintenance interface {
	ClearCache(ctx context.Context) (*domain.CacheClearResult, error)
	Update(ctx context.Context) (*domain.UpdateResult, error)
}

// ConnectionChecker tests outbound connectivity
type ConnectionChecker interface {
	Test(ctx context.Context) domain.ConnectionResult
}

// DiagnosticsDeps groups what the diagnostics service inspects
type DiagnosticsDeps struct {
	Dispatcher       *TaskDispatcher
	Sessions         domain.SessionStore
	Extractor        domain.Extractor
	AcceleratorProbe domain.CapabilityProbe
	FFmpegProbe      domain.CapabilityProbe
	Maintenance      ExtractorMaintenance
	Connection       ConnectionChecker
}

// DiagnosticsService answers status and maintenance requests
type DiagnosticsService struct {
	deps   DiagnosticsDeps
	config *domain.Config
	logs   *logger.LoggerAdapter
}

// NewDiagnosticsService creates a diagnostics service
func NewDiagnosticsService(deps DiagnosticsDeps, config *domain.Config, logs *logger.LoggerAdapter) *DiagnosticsService {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	return &DiagnosticsService{deps: deps, config: config, logs: logs}
}

// AcceleratorStatus probes aria2c
func (s *DiagnosticsService) AcceleratorStatus(ctx context.Context) domain.ProbeResult {
	return s.deps.AcceleratorProbe.Probe(ctx)
}

// PerformanceStatus reports tuning, capability availability and current load
func (s *DiagnosticsService) PerformanceStatus(ctx context.Context) domain.PerformanceStatus {
	status := domain.PerformanceStatus{
		Workers:             s.config.Dispatcher.Workers,
		ProgressThrottle:    s.config.Progress.Throttle,
		Retries:             s.config.Extractor.Retries,
		FragmentRetries:     s.config.Extractor.FragmentRetries,
		ConcurrentFragments: s.config.Extractor.ConcurrentFragments,
		MaxConnections:      s.config.Accelerator.MaxConnectionPerServer,
		Split:               s.config.Accelerator.Split,
		MinSplitSize:        s.config.Accelerator.MinSplitSize,
		Accelerator:         s.deps.AcceleratorProbe.Probe(ctx),
		FFmpeg:              s.deps.FFmpegProbe.Probe(ctx),
		Sessions:            s.deps.Sessions.Len(),
		Extractor:           s.deps.Extractor.Name(),
	}
	if d := s.deps.Dispatcher; d != nil {
		status.ActiveWorkers = d.ActiveWorkers()
		status.QueueLength = d.QueueLength()
	}
	return status
}

// FFmpegStatus probes the re-encoding tool
func (s *DiagnosticsService) FFmpegStatus(ctx context.Context) domain.ProbeResult {
	return s.deps.FFmpegProbe.Probe(ctx)
}

// ExtractionTest resolves the configured test URL without downloading it
func (s *DiagnosticsService) ExtractionTest(ctx context.Context) domain.ExtractionCheck {
	check := domain.ExtractionCheck{URL: s.config.Diagnostics.TestURL}

	info, err := s.deps.Extractor.Extract(ctx, check.URL)
	switch {
	case err == nil:
		check.Status = "ok"
		check.Title = info.DisplayTitle()
		check.Formats = len(info.Formats)
		check.Message = "extraction works"
	case strings.Contains(err.Error(), "403"):
		check.Status = "403_error"
		check.Error = err.Error()
		check.Message = "extractor was refused with HTTP 403: update the extractor, clear its cache and retry"
	default:
		check.Status = "failed"
		check.Error = err.Error()
		check.Message = "extraction failed"
	}

	s.logs.General().Info("Extraction test",
		zap.String("url", check.URL),
		zap.String("status", check.Status))
	return check
}

// Troubleshooting returns the remediation guide for refused or failing downloads
func (s *DiagnosticsService) Troubleshooting() domain.TroubleshootingGuide {
	return domain.TroubleshootingGuide{
		Forbidden: []domain.TroubleshootingStep{
			{Step: 1, Title: "Update the extractor", Method: http.MethodPost, Endpoint: "/api/v1/maintenance/update-extractor"},
			{Step: 2, Title: "Clear the extractor cache", Method: http.MethodPost, Endpoint: "/api/v1/maintenance/clear-cache"},
			{Step: 3, Title: "Check extraction", Method: http.MethodGet, Endpoint: "/api/v1/diagnostics/extraction"},
			{Step: 4, Title: "Restart the server", Description: "restart mediafetch-server to drop stale extractor state"},
			{Step: 5, Title: "Check the network", Description: "try another network or a proxy"},
		},
		Connection: []domain.TroubleshootingStep{
			{Step: 1, Title: "Basic connectivity", Method: http.MethodGet, Endpoint: "/api/v1/ping"},
			{Step: 2, Title: "Outbound connection", Method: http.MethodGet, Endpoint: "/api/v1/diagnostics/connection"},
			{Step: 3, Title: "Accelerator", Method: http.MethodGet, Endpoint: "/api/v1/diagnostics/accelerator"},
			{Step: 4, Title: "Re-encoding tool", Method: http.MethodGet, Endpoint: "/api/v1/diagnostics/ffmpeg"},
		},
	}
}

// ConnectionTest checks that the probe site is reachable
func (s *DiagnosticsService) ConnectionTest(ctx context.Context) domain.ConnectionResult {
	res := s.deps.Connection.Test(ctx)
	s.logs.General().Info("Connection test",
		zap.String("url", res.URL),
		zap.String("status", res.Status),
		zap.Int("status_code", res.StatusCode),
		zap.Duration("latency", res.Latency))
	return res
}

// DebugFormats lists the candidate formats of a URL and flags directly fetchable ones
func (s *DiagnosticsService) DebugFormats(ctx context.Context, url string) (*domain.FormatDebugReport, error) {
	if url == "" {
		return nil, &domain.ValidationError{Field: "url", Message: "missing url"}
	}

	info, err := s.deps.Extractor.Extract(ctx, url)
	if err != nil {
		return nil, err
	}

	report := &domain.FormatDebugReport{
		URL:       url,
		Title:     info.DisplayTitle(),
		Extractor: info.Extractor,
		Formats:   make([]domain.FormatDebugEntry, 0, len(info.Formats)),
	}
	for _, f := range info.Formats {
		valid := f.HasDirectURL()
		if valid {
			report.Usable++
		}
		report.Formats = append(report.Formats, domain.FormatDebugEntry{CandidateFormat: f, HasValidURL: valid})
	}
	return report, nil
}

// ClearCache clears the extractor cache
func (s *DiagnosticsService) ClearCache(ctx context.Context) (*domain.CacheClearResult, error) {
	res, err := s.deps.Maintenance.ClearCache(ctx)
	if err != nil {
		s.logs.LogAppError("Failed to clear extractor cache", zap.Error(err))
		return nil, fmt.Errorf("failed to clear cache: %w", err)
	}
	return res, nil
}

// UpdateExtractor updates the extractor binary
func (s *DiagnosticsService) UpdateExtractor(ctx context.Context) (*domain.UpdateResult, error) {
	res, err := s.deps.Maintenance.Update(ctx)
	if err != nil {
		s.logs.LogAppError("Failed to update extractor", zap.Error(err))
		return nil, err
	}
	return res, nil
}
