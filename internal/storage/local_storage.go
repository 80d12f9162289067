package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("storage: invalid key")

// LocalStorage writes under a media root on disk; the router serves that
// directory at mediaURL.
type LocalStorage struct {
	root     string
	mediaURL string
}

func NewLocalStorage(root, mediaURL string) (*LocalStorage, error) {
	if root == "" {
		return nil, errors.New("MEDIA_ROOT is required for the local storage driver")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	if mediaURL == "" {
		mediaURL = "/media/"
	}
	return &LocalStorage{root: root, mediaURL: mediaURL}, nil
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) MediaURL() string {
	return s.mediaURL
}

func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := path.Clean("/" + key)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}

	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return clean, nil
}

func (s *LocalStorage) URL(key string) string {
	return joinURL(s.mediaURL, key)
}
