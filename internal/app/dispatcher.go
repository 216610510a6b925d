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

// ErrDispatcherStopped is returned by Submit once the dispatcher is stopped
var ErrDispatcherStopped = errors.New("dispatcher is not running")

// TaskHandler runs one task to completion
type TaskHandler func(ctx context.Context, task *domain.Task)

// TaskDispatcher runs submitted tasks on a fixed pool of workers.
// The queue is unbounded: Submit never blocks and never rejects a running dispatcher.
type TaskDispatcher struct {
	handler TaskHandler
	workers int
	logs    *logger.LoggerAdapter

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*domain.Task
	running bool
	active  int

	workerWg sync.WaitGroup
}

// NewTaskDispatcher creates a dispatcher with the given pool size
func NewTaskDispatcher(workers int, handler TaskHandler, logs *logger.LoggerAdapter) *TaskDispatcher {
	if workers < 1 {
		workers = 1
	}
	if logs == nil {
		logs = logger.NewSingleLoggerAdapter(nil)
	}
	d := &TaskDispatcher{
		handler: handler,
		workers: workers,
		logs:    logs,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start launches the worker pool. Workers exit when ctx is done or Stop is called.
func (d *TaskDispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.mu.Unlock()

	d.logs.LogDispatchEvent("dispatcher_started", zap.Int("workers", d.workers))

	for i := 0; i < d.workers; i++ {
		d.workerWg.Add(1)
		go d.worker(ctx, i)
	}

	// wake idle workers on cancellation
	go func() {
		<-ctx.Done()
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	}()

	return nil
}

// Stop stops accepting tasks, lets in-flight tasks finish and waits for the workers.
// Tasks still queued are dropped.
func (d *TaskDispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher not running")
	}
	d.running = false
	dropped := len(d.queue)
	d.queue = nil
	d.cond.Broadcast()
	d.mu.Unlock()

	d.workerWg.Wait()
	d.logs.LogDispatchEvent("dispatcher_stopped", zap.Int("dropped", dropped))
	return nil
}

// IsRunning returns whether the dispatcher accepts tasks
func (d *TaskDispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Submit enqueues a task and returns immediately
func (d *TaskDispatcher) Submit(task *domain.Task) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrDispatcherStopped
	}
	d.queue = append(d.queue, task)
	depth := len(d.queue)
	d.cond.Signal()
	d.mu.Unlock()

	d.logs.LogDispatchEvent("task_enqueued",
		zap.String("task_id", task.ID),
		zap.String("session_id", task.SessionID),
		zap.Int("queue_length", depth))
	return nil
}

// QueueLength returns the number of tasks waiting for a worker
func (d *TaskDispatcher) QueueLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// ActiveWorkers returns the number of workers currently running a task
func (d *TaskDispatcher) ActiveWorkers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Workers returns the pool size
func (d *TaskDispatcher) Workers() int {
	return d.workers
}

func (d *TaskDispatcher) worker(ctx context.Context, id int) {
	defer d.workerWg.Done()

	for {
		task, ok := d.next(ctx)
		if !ok {
			d.logs.LogDispatchEvent("worker_stopped", zap.Int("worker", id))
			return
		}

		d.logs.LogDispatchEvent("task_dequeued",
			zap.Int("worker", id),
			zap.String("task_id", task.ID),
			zap.String("url", task.URL),
			zap.String("backend", string(task.Backend)))

		d.run(ctx, id, task)

		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}
}

// next blocks until a task is available or the dispatcher shuts down
func (d *TaskDispatcher) next(ctx context.Context) (*domain.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.queue) == 0 {
		if !d.running || ctx.Err() != nil {
			return nil, false
		}
		d.cond.Wait()
	}
	if !d.running || ctx.Err() != nil {
		return nil, false
	}

	task := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	d.active++
	return task, true
}

func (d *TaskDispatcher) run(ctx context.Context, worker int, task *domain.Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logs.LogAppError("Task panicked",
				zap.Int("worker", worker),
				zap.String("task_id", task.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	d.handler(ctx, task)

	d.logs.LogDispatchEvent("task_finished",
		zap.Int("worker", worker),
		zap.String("task_id", task.ID),
		zap.String("status", string(task.Status)))
}
