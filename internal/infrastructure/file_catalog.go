package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

// ErrFileNotFound is returned for names outside the catalog
var ErrFileNotFound = errors.New("file not found")

// partial transfer artifacts left by the backends
var partialSuffixes = []string{".part", ".aria2", ".ytdl", ".temp"}

// FileCatalog lists and resolves finished downloads in the download directory
type FileCatalog struct {
	dir string
}

// NewFileCatalog creates a catalog over dir
func NewFileCatalog(dir string) *FileCatalog {
	return &FileCatalog{dir: dir}
}

// Dir returns the catalog root
func (c *FileCatalog) Dir() string {
	return c.dir
}

// List returns the finished files, newest first.
// A missing directory yields an empty list.
func (c *FileCatalog) List() ([]domain.MediaFile, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.MediaFile{}, nil
		}
		return nil, fmt.Errorf("failed to read download directory: %w", err)
	}

	files := make([]domain.MediaFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || isPartialFile(entry.Name()) || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed while listing
			continue
		}
		files = append(files, domain.MediaFile{
			Filename:   entry.Name(),
			Size:       info.Size(),
			Modified:   info.ModTime(),
			MediaKind:  domain.MediaKindFromName(entry.Name()),
			IsOriginal: domain.IsOriginalName(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Resolve returns the absolute path of a file in the catalog.
// Names that escape the directory are rejected.
func (c *FileCatalog) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrFileNotFound
	}

	root, err := filepath.Abs(c.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve download directory: %w", err)
	}
	path := filepath.Join(root, name)
	if rel, err := filepath.Rel(root, path); err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrFileNotFound
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", ErrFileNotFound
	}
	return path, nil
}

func isPartialFile(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
