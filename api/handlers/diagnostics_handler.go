package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// Diagnostics is the status and maintenance surface
type Diagnostics interface {
	AcceleratorStatus(ctx context.Context) domain.ProbeResult
	PerformanceStatus(ctx context.Context) domain.PerformanceStatus
	ConnectionTest(ctx context.Context) domain.ConnectionResult
	FFmpegStatus(ctx context.Context) domain.ProbeResult
	ExtractionTest(ctx context.Context) domain.ExtractionCheck
	Troubleshooting() domain.TroubleshootingGuide
	DebugFormats(ctx context.Context, url string) (*domain.FormatDebugReport, error)
	ClearCache(ctx context.Context) (*domain.CacheClearResult, error)
	UpdateExtractor(ctx context.Context) (*domain.UpdateResult, error)
}

// DiagnosticsHandler handles diagnostics and maintenance requests
type DiagnosticsHandler struct {
	diag   Diagnostics
	logger *zap.Logger
}

// NewDiagnosticsHandler creates a new diagnostics handler
func NewDiagnosticsHandler(diag Diagnostics, logger *zap.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{diag: diag, logger: logger}
}

// Accelerator handles GET /api/v1/diagnostics/accelerator
func (h *DiagnosticsHandler) Accelerator(c *gin.Context) {
	c.JSON(http.StatusOK, h.diag.AcceleratorStatus(c.Request.Context()))
}

// Performance handles GET /api/v1/diagnostics/performance
func (h *DiagnosticsHandler) Performance(c *gin.Context) {
	c.JSON(http.StatusOK, h.diag.PerformanceStatus(c.Request.Context()))
}

// Connection handles GET /api/v1/diagnostics/connection
func (h *DiagnosticsHandler) Connection(c *gin.Context) {
	c.JSON(http.StatusOK, h.diag.ConnectionTest(c.Request.Context()))
}

// FFmpeg handles GET /api/v1/diagnostics/ffmpeg
func (h *DiagnosticsHandler) FFmpeg(c *gin.Context) {
	c.JSON(http.StatusOK, h.diag.FFmpegStatus(c.Request.Context()))
}

// Extraction handles GET /api/v1/diagnostics/extraction
func (h *DiagnosticsHandler) Extraction(c *gin.Context) {
	c.JSON(http.StatusOK, h.diag.ExtractionTest(c.Request.Context()))
}

// Troubleshooting handles GET /api/v1/diagnostics/troubleshooting
func (h *DiagnosticsHandler) Troubleshooting(c *gin.Context) {
	c.JSON(http.StatusOK, h.diag.Troubleshooting())
}

// FormatsRequest is the body of POST /api/v1/diagnostics/formats
type FormatsRequest struct {
	URL string `json:"url"`
}

// Formats handles POST /api/v1/diagnostics/formats
func (h *DiagnosticsHandler) Formats(c *gin.Context) {
	var req FormatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.diag.DebugFormats(c.Request.Context(), req.URL)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ClearCache handles POST /api/v1/maintenance/clear-cache
func (h *DiagnosticsHandler) ClearCache(c *gin.Context) {
	res, err := h.diag.ClearCache(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateExtractor handles POST /api/v1/maintenance/update-extractor
func (h *DiagnosticsHandler) UpdateExtractor(c *gin.Context) {
	res, err := h.diag.UpdateExtractor(c.Request.Context())
	if err != nil {
		h.logger.Error("Extractor update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}
