// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/efiling/internal/ports/secondary"
)

// ConvertedFileStore implements secondary.ConvertedFileStore over a directory
// where converted images are dropped, one file per converted file id.
type ConvertedFileStore struct {
	baseDir string
}

// NewConvertedFileStore creates a store rooted at baseDir, creating it if needed.
func NewConvertedFileStore(baseDir string) (*ConvertedFileStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("converted files directory not configured")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create converted files directory: %w", err)
	}
	return &ConvertedFileStore{baseDir: baseDir}, nil
}

// Fetch reads a converted file and counts its pages.
func (s *ConvertedFileStore) Fetch(ctx context.Context, convertedFileID string) (*secondary.ConvertedFile, error) {
	path, err := s.path(convertedFileID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("converted file %s: %w", convertedFileID, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read converted file %s: %w", convertedFileID, err)
	}

	pages, err := PageCount(data)
	if err != nil {
		return nil, fmt.Errorf("converted file %s: %w", convertedFileID, err)
	}
	return &secondary.ConvertedFile{Data: data, PageCount: pages}, nil
}

// Put stores a converted file under convertedFileID.
func (s *ConvertedFileStore) Put(ctx context.Context, convertedFileID string, data []byte) error {
	path, err := s.path(convertedFileID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write converted file %s: %w", convertedFileID, err)
	}
	return nil
}

// Exists checks if a converted file is present.
func (s *ConvertedFileStore) Exists(ctx context.Context, convertedFileID string) (bool, error) {
	path, err := s.path(convertedFileID)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check converted file: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// BaseDir returns the directory converted files are read from.
func (s *ConvertedFileStore) BaseDir() string {
	return s.baseDir
}

// path maps an id to a file directly under baseDir. Ids that would escape it are rejected.
func (s *ConvertedFileStore) path(convertedFileID string) (string, error) {
	if convertedFileID == "" || convertedFileID == "." || convertedFileID == ".." ||
		strings.ContainsAny(convertedFileID, `/\`) {
		return "", fmt.Errorf("invalid converted file id %q", convertedFileID)
	}
	return filepath.Join(s.baseDir, convertedFileID), nil
}

// Ensure ConvertedFileStore implements the interface
var _ secondary.ConvertedFileStore = (*ConvertedFileStore)(nil)
