package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"tienda-api/internal/config"
	"tienda-api/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoFiles      = errors.New("no files were uploaded")
	ErrTooManyFiles = errors.New("too many files in one upload")
	ErrNotAnImage   = errors.New("only image files are allowed")
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
)

// UploadFile is one incoming file of an upload batch.
type UploadFile struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// UploadService validates and stores uploaded images
type UploadService interface {
	Ingest(ctx context.Context, files []UploadFile) ([]string, error)
}

type uploadService struct {
	store  storage.ImageStore
	cfg    config.UploadConfig
	logger *zap.Logger
}

// NewUploadService creates a new instance of UploadService
func NewUploadService(store storage.ImageStore, cfg config.UploadConfig, logger *zap.Logger) UploadService {
	return &uploadService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Ingest stores every file of the batch and returns their public URLs in
// input order. Unlike the catalog batch, ingestion is all-or-nothing: one
// rejected or failed file fails the whole call.
func (s *uploadService) Ingest(ctx context.Context, files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.cfg.MaxFiles > 0 && len(files) > s.cfg.MaxFiles {
		return nil, ErrTooManyFiles
	}

	urls := make([]string, 0, len(files))
	for _, file := range files {
		if !strings.HasPrefix(file.ContentType, "image/") {
			return nil, fmt.Errorf("%w: %s", ErrNotAnImage, file.ContentType)
		}

		payload, err := io.ReadAll(io.LimitReader(file.Reader, s.cfg.MaxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		if int64(len(payload)) > s.cfg.MaxBytes {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, file.Filename)
		}

		name := uniqueName(file.Filename)
		url, err := s.store.Save(ctx, name, file.ContentType, bytes.NewReader(payload))
		if err != nil {
			s.logger.Error("Failed to store uploaded image",
				zap.String("filename", file.Filename),
				zap.Error(err),
			)
			return nil, fmt.Errorf("failed to store image: %w", err)
		}

		urls = append(urls, url)
	}

	return urls, nil
}

// uniqueName derives a collision-free stored name from the original filename,
// keeping only its extension.
func uniqueName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], ext)
}
