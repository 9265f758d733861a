package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileHelper provides file operation utilities
type FileHelper struct{}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// FileExists checks if a regular file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// EnsureParentDir creates the directory that will hold path
func (h *FileHelper) EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// CreateFile creates (or truncates) path, creating its directory first
func (h *FileHelper) CreateFile(path string) (*os.File, error) {
	if err := h.EnsureParentDir(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// AbsPath returns an absolute form of path, or path itself when that fails
func (h *FileHelper) AbsPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
