package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// RunningChecker reports whether the worker pool accepts tasks
type RunningChecker interface {
	IsRunning() bool
	Workers() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	dispatcher RunningChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(dispatcher RunningChecker) *HealthHandler {
	return &HealthHandler{
		dispatcher: dispatcher,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Dispatcher struct {
		Running bool `json:"running"`
		Workers int  `json:"workers"`
	} `json:"dispatcher"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Dispatcher.Running = h.dispatcher.IsRunning()
	response.Dispatcher.Workers = h.dispatcher.Workers()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.dispatcher.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "dispatcher not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Ping handles GET /api/v1/ping
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().Unix(),
	})
}
