package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task record
type TaskStatus string

const (
	TaskQueued     TaskStatus = "queued"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is the history record of one submitted download
type Task struct {
	ID               string      `json:"id" gorm:"primaryKey"`
	SessionID        string      `json:"session_id" gorm:"not null;index"`
	URL              string      `json:"url" gorm:"not null"`
	MediaKind        MediaKind   `json:"media_kind" gorm:"not null"`
	TargetFormat     string      `json:"target_format"`
	Quality          string      `json:"quality"`
	BackendRequested Backend     `json:"backend_requested"`
	Backend          Backend     `json:"backend" gorm:"index"`
	Downgraded       bool        `json:"downgraded"`
	Mode             ContentMode `json:"mode"`
	Status           TaskStatus  `json:"status" gorm:"not null;index"`
	Title            string      `json:"title,omitempty"`
	ErrorKind        ErrorKind   `json:"error_kind,omitempty"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	FilePath         string      `json:"file_path,omitempty"`
	CreatedAt        time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt        *time.Time  `json:"started_at,omitempty"`
	CompletedAt      *time.Time  `json:"completed_at,omitempty"`

	Request   *DownloadRequest `json:"-" gorm:"-"`
	Selection Selection        `json:"-" gorm:"-"`
}

// Selection is the backend decision for one request
type Selection struct {
	Backend    Backend     `json:"backend"`
	Downgraded bool        `json:"downgraded"`
	Mode       ContentMode `json:"mode"`
	// Direct means the accelerator owns the whole transfer and its output is observable
	Direct bool `json:"direct"`
}

// StartFinishOnly reports whether only start and finish events can be produced
func (s Selection) StartFinishOnly() bool {
	return s.Backend == BackendAccelerator && !s.Direct
}

// NewTask creates a queued task for a validated request
func NewTask(req *DownloadRequest, sel Selection) *Task {
	now := time.Now()
	return &Task{
		ID:               uuid.New().String(),
		SessionID:        req.SessionID,
		URL:              req.URL,
		MediaKind:        req.MediaKind,
		TargetFormat:     req.TargetFormat,
		Quality:          req.Quality,
		BackendRequested: req.Backend,
		Backend:          sel.Backend,
		Downgraded:       sel.Downgraded,
		Mode:             sel.Mode,
		Status:           TaskQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
		Request:          req,
		Selection:        sel,
	}
}

// MarkProcessing marks the task as picked up by a worker
func (t *Task) MarkProcessing() {
	t.Status = TaskProcessing
	now := time.Now()
	t.StartedAt = &now
	t.UpdatedAt = now
}

// MarkCompleted marks the task as completed
func (t *Task) MarkCompleted(filePath string) {
	t.Status = TaskCompleted
	t.FilePath = filePath
	now := time.Now()
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkFailed marks the task as failed
func (t *Task) MarkFailed(err error) {
	t.Status = TaskFailed
	t.ErrorKind = KindOf(err)
	t.ErrorMessage = err.Error()
	now := time.Now()
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// MarkCancelled marks the task as cancelled by the client
func (t *Task) MarkCancelled() {
	t.Status = TaskCancelled
	now := time.Now()
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// IsTerminal checks if the task is in a terminal state
func (t *Task) IsTerminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed || t.Status == TaskCancelled
}

// TaskStats represents task statistics
type TaskStats struct {
	Total      int64 `json:"total"`
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}
