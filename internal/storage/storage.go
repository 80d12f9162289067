// Package storage persists uploaded media (product images, avatars) and
// turns stored keys into public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/primeapparel/marketplace-backend/config"
)

const (
	FolderProducts = "products"
	FolderAvatars  = "avatars"

	MaxImageSize int64 = 10 << 20
)

// AllowedImageTypes are the content types accepted for uploads.
var AllowedImageTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/webp",
}

// FileStorage saves bytes under a key and builds the URL clients use to
// fetch them. URL may return a host-relative path (local driver); callers
// serving HTTP make it absolute.
type FileStorage interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	URL(key string) string
}

// Presigner is implemented by backends that can hand out direct upload URLs.
type Presigner interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string) (*PresignedURLResponse, error)
}

type PresignedURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
}

// NewKey returns folder/<uuid><ext> for an uploaded filename.
func NewKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(folder, uuid.New().String()+ext)
}

// New builds the backend selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg config.StorageConfig) (FileStorage, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	case "minio":
		return NewMinIOStorage(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.Driver)
	}
}

// ValidateFileSize validates the file size
func ValidateFileSize(size int64, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("file size exceeds maximum allowed size of %d bytes", maxSize)
	}
	return nil
}

// ValidateContentType validates the content type
func ValidateContentType(contentType string, allowedTypes []string) error {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, allowed := range allowedTypes {
		if ct == allowed {
			return nil
		}
	}
	return fmt.Errorf("content type %s is not allowed", contentType)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
