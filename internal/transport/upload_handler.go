package transport

import (
	"errors"
	"mime/multipart"
	"net/http"

	"tienda-api/internal/config"
	"tienda-api/internal/middleware"
	"tienda-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UploadHandler handles HTTP requests for image uploads
type UploadHandler struct {
	uploads service.UploadService
	cfg     config.UploadConfig
	logger  *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploads service.UploadService, cfg config.UploadConfig, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		uploads: uploads,
		cfg:     cfg,
		logger:  logger,
	}
}

// RegisterRoutes registers the upload route
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/upload", h.Upload)
}

// Upload stores the submitted images and returns their public URLs
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Bound the whole request body before parsing the multipart form.
	maxBody := h.cfg.MaxBytes*int64(h.cfg.MaxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.logger.Debug("Failed to parse multipart form", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]

	files := make([]service.UploadFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			h.logger.Error("Failed to open uploaded file", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		opened = append(opened, f)
		files = append(files, service.UploadFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      f,
		})
	}

	urls, err := h.uploads.Ingest(r.Context(), files)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}

	h.logger.Info("Images uploaded", zap.Int("count", len(urls)))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"urls":    urls,
	})
}

func (h *UploadHandler) respondUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoFiles),
		errors.Is(err, service.ErrTooManyFiles),
		errors.Is(err, service.ErrNotAnImage),
		errors.Is(err, service.ErrFileTooLarge):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Upload failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to store images")
	}
}
