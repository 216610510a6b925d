package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/pkg/logger"
)

// ErrNotCancellable is returned for sessions without a cancellable transfer
var ErrNotCancellable = errors.New("no cancellable download for this session")

// UserAgentPicker supplies the User-Agent for outgoing requests
type UserAgentPicker interface {
	Pick() string
}

// Ack acknowledges an accepted submission
type Ack struct {
	Accepted   bool             `json:"accepted"`
	Message    string           `json:"message"`
	SessionID  string           `json:"session_id"`
	TaskID     string           `json:"task_id"`
	Backend    domain.Backend   `json:"downloader"`
	Downgraded bool             `json:"downgraded"`
	MediaKind  domain.MediaKind `json:"type"`
	IsOriginal bool             `json:"is_original"`
	Format     string           `json:"format"`
}

// Collaborators groups the external dependencies of the DownloadManager
type Collaborators struct {
	Repo        domain.TaskRepository
	Store       domain.SessionStore
	Publisher   domain.Publisher
	Extractor   domain.Extractor
	Accelerator domain.Accelerator
	Fetcher     domain.EmbeddedFetcher
	// AcceleratorProbe backs backend selection, FFmpegProbe guards audio re-encoding
	AcceleratorProbe domain.CapabilityProbe
	FFmpegProbe      domain.CapabilityProbe
	UserAgents       UserAgentPicker
	Clock            domain.Clock
}

// DownloadManager accepts requests and runs them as dispatched tasks.
// ProcessTask is the job boundary: every failure inside a task becomes an
// error event on the session instead of escaping to the worker.
type DownloadManager struct {
	deps       Collaborators
	config     *domain.Config
	selector   *BackendSelector
	scorer     *FormatScorer
	dispatcher *TaskDispatcher
	logs       *logger.LoggerAdapter
	logger     *zap.Logger

	mu      sync.Mutex
	cancels map[string]*domain.CancelFlag
}

// NewDownloadManager creates a download manager and its dispatcher
func NewDownloadManager(
	deps Collaborators,
	config *domain.Config,
	scoring ScoringPolicy,
	logs *logger.LoggerAdapter,
) *DownloadManager {
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	dm := &DownloadManager{
		deps:     deps,
		config:   config,
		selector: NewBackendSelector(deps.AcceleratorProbe, logs.General()),
		scorer:   NewFormatScorer(scoring),
		logs:     logs,
		logger:   logs.General(),
		cancels:  make(map[string]*domain.CancelFlag),
	}
	dm.dispatcher = NewTaskDispatcher(config.Dispatcher.Workers, dm.ProcessTask, logs)
	return dm
}

// Dispatcher returns the worker pool running the tasks
func (dm *DownloadManager) Dispatcher() *TaskDispatcher {
	return dm.dispatcher
}

// Start starts the worker pool
func (dm *DownloadManager) Start(ctx context.Context) error {
	return dm.dispatcher.Start(ctx)
}

// Stop drains the worker pool
func (dm *DownloadManager) Stop() error {
	return dm.dispatcher.Stop()
}

// Submit validates and enqueues a request. Validation errors are returned
// synchronously; everything after enqueueing is reported through the session.
func (dm *DownloadManager) Submit(ctx context.Context, in domain.SubmitInput) (*Ack, error) {
	req, err := domain.NewDownloadRequest(in)
	if err != nil {
		return nil, err
	}

	sel := dm.selector.Select(ctx, req)
	task := domain.NewTask(req, sel)

	if err := dm.deps.Repo.Create(task); err != nil {
		dm.logs.LogAppError("Failed to record task", zap.String("task_id", task.ID), zap.Error(err))
	}

	prev, hadPrev := dm.deps.Store.Get(task.SessionID)
	dm.newReporter(task).Emit(domain.QueuedEvent())

	if err := dm.dispatcher.Submit(task); err != nil {
		err = fmt.Errorf("failed to enqueue task: %w", err)
		dm.rejectTask(task, prev, hadPrev, err)
		return nil, err
	}

	dm.logger.Info("Download submitted",
		zap.String("task_id", task.ID),
		zap.String("session_id", task.SessionID),
		zap.String("url", task.URL),
		zap.String("backend", string(sel.Backend)),
		zap.Bool("downgraded", sel.Downgraded),
		zap.Bool("direct", sel.Direct))

	return &Ack{
		Accepted:   true,
		Message:    "download task submitted",
		SessionID:  task.SessionID,
		TaskID:     task.ID,
		Backend:    sel.Backend,
		Downgraded: sel.Downgraded,
		MediaKind:  req.MediaKind,
		IsOriginal: req.IsOriginal(),
		Format:     req.FormatLabel(),
	}, nil
}

// ProcessTask runs one task to completion and publishes its terminal event
func (dm *DownloadManager) ProcessTask(ctx context.Context, task *domain.Task) {
	reporter := dm.newReporter(task)

	defer func() {
		if r := recover(); r != nil {
			dm.logs.LogAppError("Download task panicked",
				zap.String("task_id", task.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			dm.finish(task, reporter, "", fmt.Errorf("internal error: %v", r))
		}
	}()

	task.MarkProcessing()
	if err := dm.deps.Repo.Update(task); err != nil {
		dm.logger.Warn("Failed to update task", zap.String("task_id", task.ID), zap.Error(err))
	}

	path, err := dm.run(ctx, task, reporter)
	dm.finish(task, reporter, path, err)
}

func (dm *DownloadManager) run(ctx context.Context, task *domain.Task, reporter *ProgressReporter) (string, error) {
	req := task.Request

	if req.NeedsFFmpeg() {
		if res := dm.deps.FFmpegProbe.Probe(ctx); !res.Available {
			return "", &domain.UnavailableCapabilityError{
				Capability: "ffmpeg",
				Reason:     res.Message,
				Remedy:     domain.HintInstallFFmpeg,
			}
		}
	}

	if task.Selection.Direct {
		return dm.runDirect(ctx, task, reporter)
	}
	return dm.runEmbedded(ctx, task, reporter)
}

// runDirect resolves a direct URL and hands it to the accelerator
func (dm *DownloadManager) runDirect(ctx context.Context, task *domain.Task, reporter *ProgressReporter) (string, error) {
	req := task.Request
	flag := dm.registerCancel(task.SessionID)
	defer dm.releaseCancel(task.SessionID, flag)

	info, err := dm.deps.Extractor.Extract(ctx, req.URL)
	if err != nil {
		return "", err
	}
	if flag.Cancelled() {
		return "", domain.ErrCancelled
	}

	chosen, err := dm.scorer.Choose(info, req.MediaKind, req.URL)
	if err != nil {
		return "", err
	}

	task.Title = info.DisplayTitle()
	starting := domain.StartingEvent(info, req.MediaKind, true)
	if size := chosen.Size(); size > 0 {
		starting.EstimatedSize = size
	}
	reporter.Emit(starting)

	job := domain.AcceleratorJob{
		TaskID:    task.ID,
		URL:       chosen.URL,
		Dir:       dm.config.Download.BaseDir,
		Filename:  domain.PassthroughFilename(info.DisplayTitle(), chosen.Container),
		UserAgent: dm.userAgent(),
	}
	dm.logs.LogDispatchEvent("accelerator_transfer_started",
		zap.String("task_id", task.ID),
		zap.String("format_id", chosen.ID),
		zap.String("filename", job.Filename))

	return dm.deps.Accelerator.Download(ctx, job, flag, func(s domain.AcceleratorSnapshot) {
		reporter.Accelerator(s)
	})
}

// runEmbedded publishes metadata and lets the embedded fetcher do the rest
func (dm *DownloadManager) runEmbedded(ctx context.Context, task *domain.Task, reporter *ProgressReporter) (string, error) {
	req := task.Request

	info, err := dm.deps.Extractor.Extract(ctx, req.URL)
	if err != nil {
		return "", err
	}
	task.Title = info.DisplayTitle()
	reporter.Emit(domain.StartingEvent(info, req.MediaKind, req.IsOriginal()))

	opts := domain.FetchOptions{
		TaskID:         task.ID,
		Dir:            dm.config.Download.BaseDir,
		UserAgent:      dm.userAgent(),
		UseAccelerator: task.Selection.StartFinishOnly(),
	}
	return dm.deps.Fetcher.Fetch(req, opts, func(p domain.TransferProgress) {
		reporter.Transfer(p)
	})
}

func (dm *DownloadManager) finish(task *domain.Task, reporter *ProgressReporter, path string, err error) {
	switch {
	case err == nil:
		task.MarkCompleted(path)
		reporter.Emit(domain.FinishedEvent(path))
		dm.logger.Info("Download completed",
			zap.String("task_id", task.ID),
			zap.String("file", path))

	case errors.Is(err, domain.ErrCancelled):
		task.MarkCancelled()
		reporter.Emit(domain.FailedEvent(err))
		dm.logger.Info("Download cancelled", zap.String("task_id", task.ID))

	default:
		err = withHint(err, task.Selection)
		task.MarkFailed(err)
		reporter.Emit(domain.FailedEvent(err))
		dm.logs.LogAppError("Download failed",
			zap.String("task_id", task.ID),
			zap.String("session_id", task.SessionID),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err))
	}

	if err := dm.deps.Repo.Update(task); err != nil {
		dm.logger.Warn("Failed to update task", zap.String("task_id", task.ID), zap.Error(err))
	}
}

// Status returns the latest event of a session, or a not_found event
func (dm *DownloadManager) Status(sessionID string) domain.ProgressEvent {
	if ev, ok := dm.deps.Store.Get(sessionID); ok {
		return ev
	}
	return domain.NotFoundEvent(sessionID)
}

// Cancel requests cancellation of the session's running accelerator transfer.
// Transfers on the embedded backend run to completion and are not cancellable.
func (dm *DownloadManager) Cancel(sessionID string) error {
	dm.mu.Lock()
	flag, ok := dm.cancels[sessionID]
	dm.mu.Unlock()

	if !ok {
		return ErrNotCancellable
	}
	flag.Cancel()
	dm.logs.LogDispatchEvent("cancel_requested", zap.String("session_id", sessionID))
	return nil
}

// GetTask retrieves a task record by ID
func (dm *DownloadManager) GetTask(id string) (*domain.Task, error) {
	return dm.deps.Repo.FindByID(id)
}

// ListTasks lists task records with optional filters
func (dm *DownloadManager) ListTasks(filters map[string]interface{}, limit int) ([]*domain.Task, error) {
	return dm.deps.Repo.FindAll(filters, limit)
}

// Stats returns task statistics
func (dm *DownloadManager) Stats() (*domain.TaskStats, error) {
	return dm.deps.Repo.GetStats()
}

func (dm *DownloadManager) registerCancel(sessionID string) *domain.CancelFlag {
	flag := &domain.CancelFlag{}
	dm.mu.Lock()
	dm.cancels[sessionID] = flag
	dm.mu.Unlock()
	return flag
}

func (dm *DownloadManager) releaseCancel(sessionID string, flag *domain.CancelFlag) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.cancels[sessionID] == flag {
		delete(dm.cancels, sessionID)
	}
}

// rejectTask undoes the queued state of a task the dispatcher refused: the
// session goes back to what it was before and the history row is failed.
func (dm *DownloadManager) rejectTask(task *domain.Task, prev domain.ProgressEvent, hadPrev bool, err error) {
	if hadPrev {
		dm.deps.Store.Put(task.SessionID, prev)
	} else {
		dm.deps.Store.Delete(task.SessionID)
	}

	task.MarkFailed(err)
	if uerr := dm.deps.Repo.Update(task); uerr != nil {
		dm.logs.LogAppError("Failed to record rejected task", zap.String("task_id", task.ID), zap.Error(uerr))
	}
}

func (dm *DownloadManager) newReporter(task *domain.Task) *ProgressReporter {
	return NewProgressReporter(task, dm.deps.Store, dm.deps.Publisher, dm.deps.Clock, dm.config.Progress.Throttle)
}

func (dm *DownloadManager) userAgent() string {
	if dm.deps.UserAgents == nil {
		return ""
	}
	return dm.deps.UserAgents.Pick()
}
