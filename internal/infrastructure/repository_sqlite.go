package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ErrTaskNotFound is returned when a task id is unknown
var ErrTaskNotFound = errors.New("task not found")

// filterColumns whitelists the columns FindAll accepts as filters
var filterColumns = map[string]bool{
	"status":     true,
	"session_id": true,
	"backend":    true,
	"media_kind": true,
}

// SQLiteTaskRepository implements TaskRepository using SQLite
type SQLiteTaskRepository struct {
	db *gorm.DB
}

// NewSQLiteTaskRepository creates a new SQLite repository
func NewSQLiteTaskRepository(dbPath string) (*SQLiteTaskRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteTaskRepository{db: db}, nil
}

// Create stores a new task
func (r *SQLiteTaskRepository) Create(task *domain.Task) error {
	return r.db.Create(task).Error
}

// Update updates an existing task
func (r *SQLiteTaskRepository) Update(task *domain.Task) error {
	return r.db.Save(task).Error
}

// FindByID finds a task by ID
func (r *SQLiteTaskRepository) FindByID(id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		return nil, err
	}
	return &task, nil
}

// FindBySession returns the tasks of a session, newest first
func (r *SQLiteTaskRepository) FindBySession(sessionID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// FindAll finds tasks with optional filters, newest first.
// A non-positive limit returns every match.
func (r *SQLiteTaskRepository) FindAll(filters map[string]interface{}, limit int) ([]*domain.Task, error) {
	var tasks []*domain.Task
	query := r.db

	for key, value := range filters {
		if !filterColumns[key] {
			return nil, fmt.Errorf("unsupported filter: %s", key)
		}
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// GetStats returns task statistics
func (r *SQLiteTaskRepository) GetStats() (*domain.TaskStats, error) {
	stats := &domain.TaskStats{}

	if err := r.db.Model(&domain.Task{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.TaskStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Task{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.TaskQueued:
			stats.Queued = sc.Count
		case domain.TaskProcessing:
			stats.Processing = sc.Count
		case domain.TaskCompleted:
			stats.Completed = sc.Count
		case domain.TaskFailed:
			stats.Failed = sc.Count
		case domain.TaskCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteTaskRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
