package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

type memStore struct {
	mu     sync.Mutex
	events map[string]domain.ProgressEvent
}

func newMemStore() *memStore {
	return &memStore{events: map[string]domain.ProgressEvent{}}
}

func (s *memStore) Put(sessionID string, ev domain.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[sessionID] = ev
}

func (s *memStore) Get(sessionID string) (domain.ProgressEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[sessionID]
	return ev, ok
}

func (s *memStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, sessionID)
}

func (s *memStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (p *recordingPublisher) Publish(sessionID string, ev domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []domain.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProgressEvent(nil), p.events...)
}

func (p *recordingPublisher) statuses() []domain.ProgressStatus {
	var out []domain.ProgressStatus
	for _, ev := range p.all() {
		out = append(out, ev.Status)
	}
	return out
}

// fakeClock advances only when told to
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Add(offset)
}

type mockRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newMockRepo() *mockRepo {
	return &mockRepo{tasks: map[string]*domain.Task{}}
}

func (m *mockRepo) Create(task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockRepo) Update(task *domain.Task) error {
	return m.Create(task)
}

func (m *mockRepo) FindByID(id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[id]; ok {
		copied := *task
		return &copied, nil
	}
	return nil, fmt.Errorf("task not found: %s", id)
}

func (m *mockRepo) FindBySession(sessionID string) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if task.SessionID == sessionID {
			copied := *task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockRepo) FindAll(filters map[string]interface{}, limit int) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if status, ok := filters["status"]; ok && status != string(task.Status) {
			continue
		}
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockRepo) GetStats() (*domain.TaskStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.TaskStats{Total: int64(len(m.tasks))}
	for _, task := range m.tasks {
		if task.Status == domain.TaskCompleted {
			stats.Completed++
		}
	}
	return stats, nil
}

type stubExtractor struct {
	info *domain.MediaInfo
	err  error
}

func (e *stubExtractor) Extract(ctx context.Context, url string) (*domain.MediaInfo, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.info, nil
}

func (e *stubExtractor) Name() string { return "stub" }

// stubAccelerator writes the output file after replaying snapshots.
// When block is set it waits for cancellation after the first snapshot.
type stubAccelerator struct {
	snapshots []domain.AcceleratorSnapshot
	block     chan struct{}
	err       error
	job       domain.AcceleratorJob
}

func (a *stubAccelerator) Download(ctx context.Context, job domain.AcceleratorJob, cancel *domain.CancelFlag, onProgress func(domain.AcceleratorSnapshot)) (string, error) {
	a.job = job
	for _, s := range a.snapshots {
		onProgress(s)
		if a.block != nil {
			close(a.block)
			for !cancel.Cancelled() {
				time.Sleep(time.Millisecond)
			}
			return "", domain.ErrCancelled
		}
	}
	if a.err != nil {
		return "", a.err
	}
	path := filepath.Join(job.Dir, job.Filename)
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type stubFetcher struct {
	progress []domain.TransferProgress
	filename string
	err      error
	opts     domain.FetchOptions
	// between advances the clock of the reporter between hooks
	between func(i int)
}

func (f *stubFetcher) Fetch(req *domain.DownloadRequest, opts domain.FetchOptions, onProgress func(domain.TransferProgress)) (string, error) {
	f.opts = opts
	for i, p := range f.progress {
		if f.between != nil {
			f.between(i)
		}
		onProgress(p)
	}
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(opts.Dir, f.filename), nil
}
