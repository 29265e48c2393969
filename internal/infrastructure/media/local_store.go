package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"coursebundler/internal/core/domain"
	"coursebundler/pkg/utils"

	"go.uber.org/zap"
)

// LocalStore keeps media on disk below dir and serves it under baseURL.
type LocalStore struct {
	dir     string
	baseURL string
	logger  *zap.SugaredLogger
}

func NewLocalStore(dir, baseURL string, logger *zap.SugaredLogger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory: %w", err)
	}
	return &LocalStore{
		dir:     abs,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Dir is the root the HTTP layer serves static files from.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) resolve(key string) (string, error) {
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(full, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid media key %q: path traversal detected", key)
	}
	return full, nil
}

func (s *LocalStore) Upload(ctx context.Context, kind domain.MediaKind, file *domain.Upload) (domain.MediaRef, error) {
	key := objectKey(kind, file.Filename, utils.Now())
	full, err := s.resolve(key)
	if err != nil {
		return domain.MediaRef{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return domain.MediaRef{}, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return domain.MediaRef{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, file.Body); err != nil {
		os.Remove(full)
		return domain.MediaRef{}, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debugw("media stored", "key", key, "kind", kind)
	return domain.MediaRef{PublicID: key, URL: s.baseURL + "/" + key}, nil
}

func (s *LocalStore) Destroy(ctx context.Context, kind domain.MediaKind, ref domain.MediaRef) error {
	if ref.IsZero() {
		return nil
	}
	full, err := s.resolve(ref.PublicID)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
