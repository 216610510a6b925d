package infrastructure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// extractor caches removed by ClearCache, relative to the home directory
var extractorCacheDirs = []string{
	filepath.Join(".cache", "yt-dlp"),
	filepath.Join(".cache", "youtube-dl"),
}

// YTDLPTools runs maintenance commands against the yt-dlp binary
type YTDLPTools struct {
	config  *domain.ExtractorConfig
	logger  *zap.Logger
	homeDir func() (string, error)
}

// NewYTDLPTools creates the yt-dlp maintenance helper
func NewYTDLPTools(config *domain.ExtractorConfig, logger *zap.Logger) *YTDLPTools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YTDLPTools{config: config, logger: logger, homeDir: os.UserHomeDir}
}

// Version returns the installed yt-dlp version
func (t *YTDLPTools) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, t.config.YTDLPBinary, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to query yt-dlp version: %w", err)
	}
	return firstLine(string(out)), nil
}

// ClearCache asks yt-dlp to drop its cache, then removes the known cache
// directories. A failing tool run is reported, not returned.
func (t *YTDLPTools) ClearCache(ctx context.Context) (*domain.CacheClearResult, error) {
	result := &domain.CacheClearResult{Removed: []string{}}

	out, err := exec.CommandContext(ctx, t.config.YTDLPBinary, "--rm-cache-dir").CombinedOutput()
	result.ToolOutput = strings.TrimSpace(string(out))
	if err != nil {
		t.logger.Warn("yt-dlp --rm-cache-dir failed", zap.Error(err))
	} else {
		result.ToolCleared = true
	}

	home, err := t.homeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	for _, rel := range extractorCacheDirs {
		dir := filepath.Join(home, rel)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		result.Removed = append(result.Removed, dir)
	}

	switch {
	case len(result.Removed) > 0:
		result.Message = fmt.Sprintf("cache cleared, removed %d directories", len(result.Removed))
	case result.ToolCleared:
		result.Message = "cache cleared"
	default:
		result.Message = "no cache found"
	}

	t.logger.Info("Extractor cache cleared",
		zap.Bool("tool_cleared", result.ToolCleared),
		zap.Strings("removed", result.Removed))
	return result, nil
}

// Update runs `yt-dlp -U` and reports the resulting version
func (t *YTDLPTools) Update(ctx context.Context) (*domain.UpdateResult, error) {
	out, err := exec.CommandContext(ctx, t.config.YTDLPBinary, "-U").CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp update failed: %w: %s", err, lastLines(output, 3))
	}

	version, err := t.Version(ctx)
	if err != nil {
		return nil, err
	}

	t.logger.Info("Extractor updated", zap.String("version", version))
	return &domain.UpdateResult{Output: output, Version: version}, nil
}
