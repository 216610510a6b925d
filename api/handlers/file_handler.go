package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"github.com/yourusername/mediafetch-go/internal/infrastructure"
)

// FileCatalog lists and resolves finished downloads
type FileCatalog interface {
	List() ([]domain.MediaFile, error)
	Resolve(name string) (string, error)
}

// FileHandler serves the download directory
type FileHandler struct {
	catalog FileCatalog
	logger  *zap.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(catalog FileCatalog, logger *zap.Logger) *FileHandler {
	return &FileHandler{catalog: catalog, logger: logger}
}

// ListFiles handles GET /api/v1/files
func (h *FileHandler) ListFiles(c *gin.Context) {
	files, err := h.catalog.List()
	if err != nil {
		h.logger.Error("Failed to list files", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

// GetFile handles GET /api/v1/files/:name with byte range support
func (h *FileHandler) GetFile(c *gin.Context) {
	path, err := h.catalog.Resolve(c.Param("name"))
	if err != nil {
		if errors.Is(err, infrastructure.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f, err := os.Open(path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	name := filepath.Base(path)
	c.Header("Content-Disposition", ContentDisposition(name))
	if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
		c.Header("Content-Type", ctype)
	}
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}

// ContentDisposition builds an attachment header carrying the UTF-8 name
// in RFC 5987 form next to an ASCII fallback.
func ContentDisposition(name string) string {
	fallback := make([]rune, 0, len(name))
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			r = '_'
		}
		fallback = append(fallback, r)
	}
	return `attachment; filename="` + string(fallback) + `"; filename*=UTF-8''` + encodeExtValue(name)
}

func encodeExtValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
