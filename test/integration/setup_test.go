//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediafetch-go/api"
	"github.com/yourusername/mediafetch-go/api/handlers"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

type stack struct {
	server   *httptest.Server
	manager  *app.DownloadManager
	repo     *infrastructure.SQLiteTaskRepository
	registry *infrastructure.SessionRegistry
	dir      string
	started  *atomic.Int32
}

type staticExtractor struct{}

func (staticExtractor) Name() string { return "static" }

func (staticExtractor) Extract(ctx context.Context, url string) (*domain.MediaInfo, error) {
	if strings.Contains(url, "unsupported") {
		return nil, &domain.ExtractionError{URL: url, Err: errAssert("unsupported url")}
	}
	return &domain.MediaInfo{
		ID:        "abc",
		Title:     "Sample Clip",
		Duration:  12,
		Extractor: "static",
		Formats: []domain.CandidateFormat{{
			ID: "18", Container: "mp4", VideoCodec: "avc1", AudioCodec: "mp4a",
			Width: 640, Height: 360, URL: "https://cdn.example.com/18", Protocol: "https",
			FileSize: 1 << 20,
		}},
	}, nil
}

type errAssert string

func (e errAssert) Error() string { return string(e) }

// fileFetcher writes the target file and reports two progress hooks
type fileFetcher struct{}

func (fileFetcher) Fetch(req *domain.DownloadRequest, opts domain.FetchOptions, onProgress func(domain.TransferProgress)) (string, error) {
	onProgress(domain.TransferProgress{DownloadedBytes: 512, TotalBytes: 1024, Speed: 1024, ETA: 1})
	onProgress(domain.TransferProgress{DownloadedBytes: 1024, TotalBytes: 1024, Speed: 1024})
	path := filepath.Join(opts.Dir, "Sample Clip."+req.TargetFormat)
	return path, os.WriteFile(path, []byte("media"), 0644)
}

// blockingAccelerator runs until the cancel flag is raised
type blockingAccelerator struct {
	started *atomic.Int32
}

func (a blockingAccelerator) Download(ctx context.Context, job domain.AcceleratorJob, cancel *domain.CancelFlag, onProgress func(domain.AcceleratorSnapshot)) (string, error) {
	a.started.Add(1)
	for i := 0; ; i++ {
		if cancel.Cancelled() {
			return "", domain.ErrCancelled
		}
		onProgress(domain.AcceleratorSnapshot{DownloadedBytes: int64(i), TotalBytes: 1 << 20, Percent: 1, Speed: "1MiB", ETA: "1s"})
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

type availableProbe struct{}

func (availableProbe) Probe(ctx context.Context) domain.ProbeResult {
	return domain.ProbeResult{Available: true, Version: "test"}
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dir := t.TempDir()

	config := domain.DefaultConfig()
	config.Download.BaseDir = filepath.Join(dir, "downloads")
	config.Download.LogsDir = filepath.Join(dir, "logs")
	config.Dispatcher.Workers = 2
	config.Progress.Throttle = 0
	require.NoError(t, os.MkdirAll(config.Download.BaseDir, 0755))

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "debug", LogsDir: config.Download.LogsDir}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { multiLog.Close() })
	logs := logger.NewLoggerAdapter(multiLog)

	repo, err := infrastructure.NewSQLiteTaskRepository(filepath.Join(dir, "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	registry := infrastructure.NewSessionRegistry(config.Registry, time.Now, nil)
	publisher := infrastructure.NewEventBusPublisher(nil)
	hub := handlers.NewSessionHub(registry, nil)
	require.NoError(t, publisher.Subscribe(hub.HandleProgress))

	started := &atomic.Int32{}
	manager := app.NewDownloadManager(app.Collaborators{
		Repo:             repo,
		Store:            registry,
		Publisher:        publisher,
		Extractor:        staticExtractor{},
		Accelerator:      blockingAccelerator{started: started},
		Fetcher:          fileFetcher{},
		AcceleratorProbe: availableProbe{},
		FFmpegProbe:      availableProbe{},
		Clock:            time.Now,
	}, config, app.DefaultScoringPolicy(), logs)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, manager.Start(ctx))
	t.Cleanup(func() {
		cancel()
		manager.Stop()
	})

	diagnostics := app.NewDiagnosticsService(app.DiagnosticsDeps{
		Dispatcher:       manager.Dispatcher(),
		Sessions:         registry,
		Extractor:        staticExtractor{},
		AcceleratorProbe: availableProbe{},
		FFmpegProbe:      availableProbe{},
	}, config, logs)

	server := httptest.NewServer(api.NewHandler(api.RouterDeps{
		Downloads:   manager,
		Dispatcher:  manager.Dispatcher(),
		Diagnostics: diagnostics,
		Files:       infrastructure.NewFileCatalog(config.Download.BaseDir),
		Hub:         hub,
		LogAdapter:  logs,
		LogsDir:     config.Download.LogsDir,
	}))
	t.Cleanup(server.Close)

	return &stack{
		server:   server,
		manager:  manager,
		repo:     repo,
		registry: registry,
		dir:      config.Download.BaseDir,
		started:  started,
	}
}
