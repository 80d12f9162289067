package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/primeapparel/marketplace-backend/internal/storage"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
)

var (
	ErrNoFiles             = errors.New("no files provided")
	ErrUnsupportedFile     = errors.New("unsupported file")
	ErrFileSaveFailed      = errors.New("failed to save file")
	ErrPresignNotSupported = errors.New("presigned uploads require the s3 storage driver")
)

// Upload is one incoming file; Open is called once.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// MediaService stores product images and avatars and resolves their URLs.
type MediaService interface {
	SaveImages(ctx context.Context, folder string, uploads []Upload) ([]string, error)
	Presign(ctx context.Context, folder, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type mediaService struct {
	store storage.FileStorage
}

func NewMediaService(store storage.FileStorage) MediaService {
	return &mediaService{store: store}
}

// SaveImages validates every file before writing any, then stores them in
// order. The returned URLs may be host-relative for the local driver.
func (s *mediaService) SaveImages(ctx context.Context, folder string, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	for _, u := range uploads {
		if err := storage.ValidateContentType(u.ContentType, storage.AllowedImageTypes); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFile, u.Filename, err)
		}
		if err := storage.ValidateFileSize(u.Size, storage.MaxImageSize); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedFile, u.Filename, err)
		}
	}

	urls := make([]string, 0, len(uploads))
	for _, u := range uploads {
		url, err := s.save(ctx, folder, u)
		if err != nil {
			logger.Error("Failed to save upload", err, map[string]interface{}{
				"filename": u.Filename,
				"saved":    len(urls),
			})
			return nil, fmt.Errorf("%w: %v", ErrFileSaveFailed, err)
		}
		urls = append(urls, url)
	}

	logger.Info("Uploads stored", map[string]interface{}{
		"folder": folder,
		"count":  len(urls),
	})
	return urls, nil
}

func (s *mediaService) save(ctx context.Context, folder string, u Upload) (string, error) {
	r, err := u.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	key, err := s.store.Save(ctx, storage.NewKey(folder, u.Filename), r, u.Size, u.ContentType)
	if err != nil {
		return "", err
	}
	return s.store.URL(key), nil
}

func (s *mediaService) Presign(ctx context.Context, folder, filename, contentType string) (*storage.PresignedURLResponse, error) {
	presigner, ok := s.store.(storage.Presigner)
	if !ok {
		return nil, ErrPresignNotSupported
	}
	if err := storage.ValidateContentType(contentType, storage.AllowedImageTypes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}
	return presigner.PresignUpload(ctx, folder, filename, contentType)
}
