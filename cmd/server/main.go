package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/mediafetch-go/api"
	"github.com/yourusername/mediafetch-go/api/handlers"
	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	foreground = flag.Bool("foreground", false, "Run in the foreground instead of detaching")
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	if !*serverMode && !*foreground {
		startAsDaemon()
		return
	}

	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runServer() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	baseLog, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer baseLog.Sync()

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	}, baseLog)
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	logAdapter := logger.NewLoggerAdapter(multiLog)
	log := logAdapter.General()

	log.Info("Starting mediafetch server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("download_dir", config.Download.BaseDir),
		zap.Int("workers", config.Dispatcher.Workers))

	if err := os.MkdirAll(config.Download.BaseDir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	repo, err := infrastructure.NewSQLiteTaskRepository(config.Download.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	registry := infrastructure.NewSessionRegistry(config.Registry, time.Now, log)
	publisher := infrastructure.NewEventBusPublisher(nil)

	hub := handlers.NewSessionHub(registry, log)
	if err := publisher.Subscribe(hub.HandleProgress); err != nil {
		return fmt.Errorf("failed to subscribe session hub: %w", err)
	}
	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	if err := publisher.SubscribeAsync(notifier.HandleProgress); err != nil {
		return fmt.Errorf("failed to subscribe notifier: %w", err)
	}

	agents := infrastructure.NewUserAgentPool(nil)
	acceleratorProbe := infrastructure.NewAcceleratorProbe(&config.Accelerator)
	ffmpegProbe := infrastructure.NewFFmpegProbe(&config.Extractor)
	extractor := newExtractor(config, agents, log)

	manager := app.NewDownloadManager(app.Collaborators{
		Repo:             repo,
		Store:            registry,
		Publisher:        publisher,
		Extractor:        extractor,
		Accelerator:      infrastructure.NewAria2cAccelerator(&config.Accelerator, logAdapter),
		Fetcher:          infrastructure.NewYTDLPFetcher(&config.Extractor, &config.Accelerator, logAdapter),
		AcceleratorProbe: acceleratorProbe,
		FFmpegProbe:      ffmpegProbe,
		UserAgents:       agents,
		Clock:            time.Now,
	}, config, app.DefaultScoringPolicy(), logAdapter)

	diagnostics := app.NewDiagnosticsService(app.DiagnosticsDeps{
		Dispatcher:       manager.Dispatcher(),
		Sessions:         registry,
		Extractor:        extractor,
		AcceleratorProbe: acceleratorProbe,
		FFmpegProbe:      ffmpegProbe,
		Maintenance:      infrastructure.NewYTDLPTools(&config.Extractor, log),
		Connection:       infrastructure.NewConnectionTester(&config.Diagnostics, agents),
	}, config, logAdapter)

	probeCapabilities(context.Background(), log, acceleratorProbe, ffmpegProbe,
		infrastructure.NewExtractorProbe(&config.Extractor))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.Dispatcher.AutoStart {
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start dispatcher: %w", err)
		}
	}

	server := &http.Server{
		Addr: net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port)),
		Handler: api.NewHandler(api.RouterDeps{
			Downloads:   manager,
			Dispatcher:  manager.Dispatcher(),
			Diagnostics: diagnostics,
			Files:       infrastructure.NewFileCatalog(config.Download.BaseDir),
			Hub:         hub,
			LogAdapter:  logAdapter,
			LogsDir:     config.Download.LogsDir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		registry.RunJanitor(gctx, config.Registry.SweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		hub.CloseAll()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		if manager.Dispatcher().IsRunning() {
			if err := manager.Stop(); err != nil {
				log.Error("Error stopping dispatcher", zap.Error(err))
			}
		}
		publisher.WaitAsync()
		return nil
	})

	if err := g.Wait(); err != nil {
		logAdapter.LogAppError("Server stopped with error", zap.Error(err))
		return err
	}

	log.Info("Server exited")
	return nil
}

// newExtractor returns yt-dlp, fronted by the native YouTube client when enabled
func newExtractor(config *domain.Config, agents *infrastructure.UserAgentPool, log *zap.Logger) domain.Extractor {
	ytdlp := infrastructure.NewYTDLPExtractor(&config.Extractor, agents, log)
	if !config.Extractor.YouTubeNative {
		return ytdlp
	}
	native := infrastructure.NewYouTubeExtractor(&http.Client{Timeout: config.Diagnostics.Timeout}, log)
	return infrastructure.NewCompositeExtractor(native, ytdlp, log)
}

func probeCapabilities(ctx context.Context, log *zap.Logger, probes ...*infrastructure.ExecProbe) {
	for _, p := range probes {
		res := p.Probe(ctx)
		if !res.Available {
			log.Warn("Capability unavailable", zap.String("tool", p.Name()), zap.String("reason", res.Message))
			continue
		}
		log.Info("Capability available", zap.String("tool", p.Name()), zap.String("version", res.Version))
	}
}
