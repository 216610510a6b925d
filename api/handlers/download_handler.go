package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/app"
	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
)

// DownloadService is what the download handler needs from the manager
type DownloadService interface {
	Submit(ctx context.Context, in domain.SubmitInput) (*app.Ack, error)
	Status(sessionID string) domain.ProgressEvent
	Cancel(sessionID string) error
	GetTask(id string) (*domain.Task, error)
	ListTasks(filters map[string]interface{}, limit int) ([]*domain.Task, error)
	Stats() (*domain.TaskStats, error)
}

// DownloadHandler handles submission, session and task history requests
type DownloadHandler struct {
	downloads DownloadService
	logger    *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloads DownloadService, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloads: downloads,
		logger:    logger,
	}
}

// SubmitRequest is the body of POST /api/v1/downloads
type SubmitRequest struct {
	URL            string `json:"url"`
	Type           string `json:"type,omitempty"`
	Format         string `json:"format,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Downloader     string `json:"downloader,omitempty"`
	SessionID      string `json:"session_id"`
	EmbedThumbnail bool   `json:"embed_thumbnail,omitempty"`
	EmbedMetadata  bool   `json:"embed_metadata,omitempty"`
}

// Submit handles POST /api/v1/downloads
func (h *DownloadHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ack, err := h.downloads.Submit(c.Request.Context(), domain.SubmitInput{
		URL:            req.URL,
		MediaKind:      req.Type,
		TargetFormat:   req.Format,
		Quality:        req.Quality,
		Backend:        req.Downloader,
		SessionID:      req.SessionID,
		EmbedThumbnail: req.EmbedThumbnail,
		EmbedMetadata:  req.EmbedMetadata,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
			return
		}
		h.logger.Error("Failed to submit download", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, ack)
}

// GetSession handles GET /api/v1/sessions/:session_id
func (h *DownloadHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.downloads.Status(c.Param("session_id")))
}

// CancelSession handles POST /api/v1/sessions/:session_id/cancel
func (h *DownloadHandler) CancelSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if err := h.downloads.Cancel(sessionID); err != nil {
		if errors.Is(err, app.ErrNotCancellable) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to cancel session", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "cancellation requested", "session_id": sessionID})
}

// ListTasks handles GET /api/v1/tasks
func (h *DownloadHandler) ListTasks(c *gin.Context) {
	filters := make(map[string]interface{})
	for param, column := range map[string]string{
		"status":     "status",
		"session_id": "session_id",
		"type":       "media_kind",
	} {
		if v := c.Query(param); v != "" {
			filters[column] = v
		}
	}
	if v := c.Query("downloader"); v != "" {
		backend, ok := domain.ParseBackend(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid downloader"})
			return
		}
		filters["backend"] = string(backend)
	}

	limit := 0
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	tasks, err := h.downloads.ListTasks(filters, limit)
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// GetTask handles GET /api/v1/tasks/:id
func (h *DownloadHandler) GetTask(c *gin.Context) {
	task, err := h.downloads.GetTask(c.Param("id"))
	if err != nil {
		if errors.Is(err, infrastructure.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, task)
}

// GetStats handles GET /api/v1/tasks/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.downloads.Stats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
