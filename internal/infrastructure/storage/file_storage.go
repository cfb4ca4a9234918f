package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"go.uber.org/zap"
)

// LocalBlobStore implements port.BlobStore on the local filesystem. Attachment
// content is written under baseDir; keys never escape it.
type LocalBlobStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalBlobStore creates a new LocalBlobStore
func NewLocalBlobStore(baseDir string, logger *zap.Logger) port.BlobStore {
	return &LocalBlobStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content under the given key
func (s *LocalBlobStore) Save(ctx context.Context, key string, content []byte) error {
	fullPath := s.fullPath(key)

	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Blob saved",
		zap.String("key", key),
		zap.Int("size", len(content)))

	return nil
}

// Read returns the content stored under the key
func (s *LocalBlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	fullPath := s.fullPath(key)

	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Failed to read file",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

// Exists checks whether content is stored under the key
func (s *LocalBlobStore) Exists(ctx context.Context, key string) bool {
	_, err := os.Stat(s.fullPath(key))
	return err == nil
}

// Delete removes the content stored under the key. Deleting a missing key is
// a no-op.
func (s *LocalBlobStore) Delete(ctx context.Context, key string) error {
	fullPath := s.fullPath(key)

	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(fullPath); err != nil {
		s.logger.Error("Failed to delete file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (s *LocalBlobStore) fullPath(key string) string {
	return filepath.Join(s.baseDir, key)
}

// validatePath checks that the path stays within baseDir
func (s *LocalBlobStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("key escapes base directory: %s", fullPath)
	}

	return nil
}

// Verify interface compliance
var _ port.BlobStore = (*LocalBlobStore)(nil)
