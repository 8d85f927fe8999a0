package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/giantswarm/stepflow/pkg/logging"
)

// ErrNotFound is returned by Storage.Load and Storage.Delete for unknown names.
var ErrNotFound = errors.New("entity not found")

// Storage persists named documents of one file extension below a directory,
// one file per document and one subdirectory per entity type.
type Storage struct {
	mu  sync.RWMutex
	dir string
	ext string
	log *logging.Logger
}

// NewStorage creates a storage rooted at dir writing files with extension ext
// (for example ".json").
func NewStorage(dir, ext string, log *logging.Logger) *Storage {
	if log == nil {
		log = logging.Discard()
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Storage{dir: dir, ext: ext, log: log.With("Storage")}
}

// Dir returns the storage root.
func (ds *Storage) Dir() string {
	return ds.dir
}

// Path returns the file a document would be stored at.
func (ds *Storage) Path(entityType, name string) string {
	return filepath.Join(ds.dir, entityType, sanitizeFilename(name)+ds.ext)
}

// Save stores data for the given entity type and name.
func (ds *Storage) Save(entityType string, name string, data []byte) error {
	if entityType == "" {
		return fmt.Errorf("entityType cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	targetDir := filepath.Join(ds.dir, entityType)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	filePath := ds.Path(entityType, name)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	ds.log.Debug("Saved %s/%s to %s", entityType, name, filePath)
	return nil
}

// Load retrieves data for the given entity type and name.
func (ds *Storage) Load(entityType string, name string) ([]byte, error) {
	if entityType == "" {
		return nil, fmt.Errorf("entityType cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	filePath := ds.Path(entityType, name)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", entityType, name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

// Delete removes the file for the given entity type and name.
func (ds *Storage) Delete(entityType string, name string) error {
	if entityType == "" {
		return fmt.Errorf("entityType cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()

	filePath := ds.Path(entityType, name)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", entityType, name, ErrNotFound)
		}
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}

	ds.log.Debug("Deleted %s/%s from %s", entityType, name, filePath)
	return nil
}

// List returns the sorted names stored for the given entity type.
func (ds *Storage) List(entityType string) ([]string, error) {
	if entityType == "" {
		return nil, fmt.Errorf("entityType cannot be empty")
	}

	ds.mu.RLock()
	defer ds.mu.RUnlock()

	pattern := filepath.Join(ds.dir, entityType, "*"+ds.ext)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", entityType, err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		names = append(names, strings.TrimSuffix(base, ds.ext))
	}
	sort.Strings(names)
	return names, nil
}

// sanitizeFilename ensures the filename is safe for filesystem operations.
func sanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '.', ' ':
			return '_'
		}
		return r
	}, name)

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
