package domain

import "time"

// TaskRepository defines the interface for task history persistence
type TaskRepository interface {
	// Create stores a new task
	Create(task *Task) error

	// Update updates an existing task
	Update(task *Task) error

	// FindByID finds a task by ID
	FindByID(id string) (*Task, error)

	// FindBySession returns the tasks of a session, newest first
	FindBySession(sessionID string) ([]*Task, error)

	// FindAll finds tasks with optional filters, newest first
	FindAll(filters map[string]interface{}, limit int) ([]*Task, error)

	// GetStats returns task statistics
	GetStats() (*TaskStats, error)
}

// SessionStore holds the latest ProgressEvent per session
type SessionStore interface {
	Put(sessionID string, event ProgressEvent)
	Get(sessionID string) (ProgressEvent, bool)
	Delete(sessionID string)
	Len() int
}

// Publisher pushes events to whoever watches a session
type Publisher interface {
	Publish(sessionID string, event ProgressEvent)
}

// Clock is injected where time matters for behaviour
type Clock func() time.Time
