// Package local reads block-list resources from the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem source.
type Config struct {
	// BaseDir is the root directory holding the list files.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Source opens list files under a base directory.
type Source struct {
	baseDir string
}

// New creates a new filesystem-backed source.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	return &Source{baseDir: cfg.BaseDir}, nil
}

// Open returns a reader for name, which must stay inside the base directory.
func (s *Source) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name is required")
	}

	fullPath := filepath.Join(s.baseDir, name)

	// Clean the path and verify it's within baseDir to prevent path traversal.
	cleanBaseDir := filepath.Clean(s.baseDir)
	cleanFullPath := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFullPath, cleanBaseDir+string(filepath.Separator)) {
		return nil, fmt.Errorf("path traversal detected")
	}

	// #nosec G304 -- path is confined to the configured base directory above.
	f, err := os.Open(cleanFullPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}
